package topics

const (
	// Resultados de partidas (consumido pelo settlement-worker)
	MatchResults = "match_results"

	// Apostas e banca
	BetSettled  = "bet_settled"
	BankUpdated = "bank_updated"

	// DLQs
	MatchResultsDLQ = "match_results_dlq"
)
