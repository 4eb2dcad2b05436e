package events

// Evento publicado no tópico "bet_settled" quando o status de uma aposta muda.
type BetSettled struct {
	MatchID              string `json:"match_id"`
	OldStatus            string `json:"old_status"` // "" quando não havia aposta
	NewStatus            string `json:"new_status"`
	BetAmountCents       int64  `json:"bet_amount_cents"`
	PotentialReturnCents int64  `json:"potential_return_cents"`
	DeltaCents           int64  `json:"delta_cents"`
	TsUnixMs             int64  `json:"ts_unix_ms"`
}
