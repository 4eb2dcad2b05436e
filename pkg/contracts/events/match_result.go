package events

// Evento consumido do tópico "match_results": resultado final de uma partida
// acompanhada, produzido pela plataforma de coleta (fora deste repositório).
type MatchResult struct {
	MatchID  string `json:"match_id"`
	Outcome  string `json:"outcome"` // "won" | "lost"
	Source   string `json:"source,omitempty"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
