package bankroll

import "fmt"

// BetStatus é o ciclo de vida de uma aposta acompanhada.
// StatusNone representa "nenhuma aposta registrada".
type BetStatus string

const (
	StatusNone      BetStatus = ""
	StatusPending   BetStatus = "pending"
	StatusWon       BetStatus = "won"
	StatusLost      BetStatus = "lost"
	StatusCancelled BetStatus = "cancelled"
)

// Valid reporta se o status é um dos valores reconhecidos.
func (s BetStatus) Valid() bool {
	switch s {
	case StatusNone, StatusPending, StatusWon, StatusLost, StatusCancelled:
		return true
	}
	return false
}

// Settled reporta se o status é terminal com resultado (won/lost).
func (s BetStatus) Settled() bool {
	return s == StatusWon || s == StatusLost
}

// BetInfo é a aposta associada a uma análise salva. Valores em centavos.
type BetInfo struct {
	Status               BetStatus
	BetAmountCents       int64
	Odd                  float64
	PotentialReturnCents int64
	PlacedAtMs           int64
	ResultAtMs           *int64 // só existe em won/lost
}

// Normalized devolve a aposta em forma canônica: stake zero equivale a
// "sem aposta", então status e valores são zerados juntos.
func (b BetInfo) Normalized() BetInfo {
	if b.BetAmountCents == 0 {
		return BetInfo{}
	}
	return b
}

// Validate rejeita propostas malformadas antes de qualquer I/O.
func (b BetInfo) Validate() error {
	if !b.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidBet, string(b.Status))
	}
	if b.BetAmountCents < 0 {
		return fmt.Errorf("%w: negative stake", ErrInvalidBet)
	}
	if b.PotentialReturnCents < 0 {
		return fmt.Errorf("%w: negative potential return", ErrInvalidBet)
	}
	if b.Odd < 0 {
		return fmt.Errorf("%w: negative odd", ErrInvalidBet)
	}
	return nil
}

// BankSettings é a linha única de banca (id "default" no banco).
type BankSettings struct {
	TotalBankCents int64
	Currency       string
	UpdatedAtMs    int64
}

// MatchData são os dados de entrada da partida, como digitados pelo usuário.
type MatchData struct {
	HomeTeam  string
	AwayTeam  string
	MatchDate string
	MatchTime string
	Odd       float64 // odd over 1.5 usada na análise
}

// AnalysisResult é o snapshot produzido pelo gerador de análises.
// O motor trata isso como opaco: só persiste junto com o registro.
type AnalysisResult struct {
	Probability     float64
	ConfidenceScore float64
	ExpectedValue   float64
}

// MatchRecord é uma análise salva, dona de no máximo uma BetInfo.
type MatchRecord struct {
	ID          string // gerado no primeiro save
	TimestampMs int64  // última modificação
	Match       MatchData
	Analysis    AnalysisResult
	Bet         BetInfo
}
