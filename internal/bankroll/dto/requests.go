package dto

// Valores monetários trafegam como decimais (2 casas) na API; a conversão
// para centavos acontece na borda HTTP.

type BetInfo struct {
	Status          string  `json:"status,omitempty"` // pending | won | lost | cancelled
	BetAmount       float64 `json:"betAmount"`
	Odd             float64 `json:"odd,omitempty"`
	PotentialReturn float64 `json:"potentialReturn"`
	PlacedAt        int64   `json:"placedAt,omitempty"` // unix ms
	ResultAt        *int64  `json:"resultAt,omitempty"` // unix ms
}

type MatchData struct {
	HomeTeam  string  `json:"homeTeam"`
	AwayTeam  string  `json:"awayTeam"`
	MatchDate string  `json:"matchDate,omitempty"`
	MatchTime string  `json:"matchTime,omitempty"`
	Odd       float64 `json:"oddOver15,omitempty"`
}

type AnalysisResult struct {
	Probability     float64 `json:"probabilityOver15"`
	ConfidenceScore float64 `json:"confidenceScore"`
	ExpectedValue   float64 `json:"ev"`
}

type SaveMatchRequest struct {
	ID     string         `json:"id,omitempty"` // vazio no primeiro save
	Data   MatchData      `json:"data"`
	Result AnalysisResult `json:"result"`

	BetInfo *BetInfo `json:"betInfo,omitempty"`
	// Aposta anterior como a UI a conhecia; usada na classificação da edição
	PriorBetInfo *BetInfo `json:"priorBetInfo,omitempty"`
}

type SetBetStatusRequest struct {
	Status string `json:"status"` // "won" | "lost"
}

type UpdateBankRequest struct {
	TotalBank float64 `json:"totalBank"`
	Currency  string  `json:"currency,omitempty"`
}
