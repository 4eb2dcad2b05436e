package dto

type BankResponse struct {
	TotalBank float64 `json:"totalBank"`
	Currency  string  `json:"currency"`
	Display   string  `json:"display,omitempty"` // saldo formatado, ex: "R$80.00"
	UpdatedAt int64   `json:"updatedAt"` // unix ms
}

type MatchResponse struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"` // unix ms
	Data      MatchData      `json:"data"`
	Result    AnalysisResult `json:"result"`
	BetInfo   *BetInfo       `json:"betInfo,omitempty"`
}

// SaveMatchResponse é o retorno de uma edição de aposta. Skipped indica
// rejeição por reentrância (outra edição em andamento): nada foi aplicado.
type SaveMatchResponse struct {
	Match   *MatchResponse `json:"match,omitempty"`
	Skipped bool           `json:"skipped,omitempty"`
}
