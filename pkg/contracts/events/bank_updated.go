package events

// Evento publicado no tópico "bank_updated" após cada escrita de banca
// comprometida pelo motor de reconciliação.
type BankUpdated struct {
	TotalBankCents int64  `json:"total_bank_cents"`
	DeltaCents     int64  `json:"delta_cents"`
	Currency       string `json:"currency"`
	MatchID        string `json:"match_id,omitempty"` // vazio em edições diretas da banca
	UpdatedAtMs    int64  `json:"updated_at_ms"`
}
