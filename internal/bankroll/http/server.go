package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/goalscanpro/bankroll-core/internal/bankroll"
	"github.com/goalscanpro/bankroll-core/internal/bankroll/dto"
	"github.com/goalscanpro/bankroll-core/internal/bankroll/money"
)

// Engine define as operações do motor de reconciliação usadas pelos handlers
type Engine interface {
	ApplyBetEdit(ctx context.Context, rec bankroll.MatchRecord, prior *bankroll.BetInfo) (*bankroll.MatchRecord, error)
	SetBetStatus(ctx context.Context, matchID string, status bankroll.BetStatus) (*bankroll.MatchRecord, error)
	DeleteRecord(ctx context.Context, matchID string) error
	Bank(ctx context.Context) (*bankroll.BankSettings, error)
	SetBank(ctx context.Context, totalCents int64, currency string) (*bankroll.BankSettings, error)
	Records(ctx context.Context) ([]bankroll.MatchRecord, error)
}

// Server expõe o motor de reconciliação para a UI
type Server struct {
	log    *zap.Logger
	engine Engine
}

func NewServer(log *zap.Logger, e Engine) *Server { return &Server{log: log, engine: e} }

// Router retorna o mux HTTP com as rotas da API
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bank", s.bank)          // GET | PUT
	mux.HandleFunc("/matches", s.matches)    // GET lista | POST save/edit
	mux.HandleFunc("/matches/", s.matchByID) // POST /matches/{id}/bet/status | DELETE /matches/{id}
	return mux
}

// bank: GET devolve a banca (404 se nunca salva); PUT é a edição direta
func (s *Server) bank(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.engine.Bank(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if settings == nil {
			http.Error(w, "bank not initialized", http.StatusNotFound)
			return
		}
		writeJSON(w, bankToDTO(settings))

	case http.MethodPut:
		var req dto.UpdateBankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.TotalBank < 0 {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		settings, err := s.engine.SetBank(r.Context(), money.ToCents(req.TotalBank), req.Currency)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		writeJSON(w, bankToDTO(settings))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// matches: GET lista análises salvas; POST aplica uma edição de aposta
func (s *Server) matches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		recs, err := s.engine.Records(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		out := make([]dto.MatchResponse, 0, len(recs))
		for i := range recs {
			out = append(out, matchToDTO(&recs[i]))
		}
		writeJSON(w, out)

	case http.MethodPost:
		var req dto.SaveMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Data.HomeTeam == "" || req.Data.AwayTeam == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		rec := recFromDTO(&req)
		var prior *bankroll.BetInfo
		if req.PriorBetInfo != nil {
			p := betFromDTO(req.PriorBetInfo)
			prior = &p
		}

		canonical, err := s.engine.ApplyBetEdit(r.Context(), rec, prior)
		if errors.Is(err, bankroll.ErrEditInFlight) {
			// rejeição por reentrância: no-op, não erro
			writeJSON(w, dto.SaveMatchResponse{Skipped: true})
			return
		}
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		m := matchToDTO(canonical)
		writeJSON(w, dto.SaveMatchResponse{Match: &m})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// matchByID: POST /matches/{id}/bet/status marca won/lost; DELETE remove
func (s *Server) matchByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/matches/")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(rest, "/bet/status"):
		id := strings.TrimSuffix(rest, "/bet/status")
		if id == "" {
			http.Error(w, "matchId required", http.StatusBadRequest)
			return
		}
		var req dto.SetBetStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		canonical, err := s.engine.SetBetStatus(r.Context(), id, bankroll.BetStatus(req.Status))
		if errors.Is(err, bankroll.ErrEditInFlight) {
			writeJSON(w, dto.SaveMatchResponse{Skipped: true})
			return
		}
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		m := matchToDTO(canonical)
		writeJSON(w, dto.SaveMatchResponse{Match: &m})

	case r.Method == http.MethodDelete:
		id := rest
		if id == "" || strings.Contains(id, "/") {
			http.Error(w, "matchId required", http.StatusBadRequest)
			return
		}
		err := s.engine.DeleteRecord(r.Context(), id)
		if errors.Is(err, bankroll.ErrEditInFlight) {
			writeJSON(w, dto.SaveMatchResponse{Skipped: true})
			return
		}
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// writeEngineError mapeia a taxonomia de erros do motor para HTTP
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bankroll.ErrInvalidBet), errors.Is(err, bankroll.ErrInvalidCurrency):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, bankroll.ErrRecordNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, bankroll.ErrBankWrite):
		// nada foi mutado; o cliente pode reenviar a mesma edição
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, bankroll.ErrRecordWrite):
		// banca já avançou; reenviar a mesma edição se auto-corrige
		s.log.Warn("bank/record inconsistency", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func recFromDTO(req *dto.SaveMatchRequest) bankroll.MatchRecord {
	rec := bankroll.MatchRecord{
		ID: req.ID,
		Match: bankroll.MatchData{
			HomeTeam:  req.Data.HomeTeam,
			AwayTeam:  req.Data.AwayTeam,
			MatchDate: req.Data.MatchDate,
			MatchTime: req.Data.MatchTime,
			Odd:       req.Data.Odd,
		},
		Analysis: bankroll.AnalysisResult(req.Result),
	}
	if req.BetInfo != nil {
		rec.Bet = betFromDTO(req.BetInfo)
	}
	return rec
}

func betFromDTO(b *dto.BetInfo) bankroll.BetInfo {
	out := bankroll.BetInfo{
		Status:               bankroll.BetStatus(b.Status),
		BetAmountCents:       money.ToCents(b.BetAmount),
		Odd:                  b.Odd,
		PotentialReturnCents: money.ToCents(b.PotentialReturn),
		PlacedAtMs:           b.PlacedAt,
		ResultAtMs:           b.ResultAt,
	}
	// retorno omitido: deriva de stake x odd
	if out.PotentialReturnCents == 0 && out.Odd > 0 {
		out.PotentialReturnCents = money.PotentialReturnCents(out.BetAmountCents, out.Odd)
	}
	return out
}

func betToDTO(b bankroll.BetInfo) *dto.BetInfo {
	if b.Normalized().Status == bankroll.StatusNone {
		return nil
	}
	return &dto.BetInfo{
		Status:          string(b.Status),
		BetAmount:       money.FromCents(b.BetAmountCents),
		Odd:             b.Odd,
		PotentialReturn: money.FromCents(b.PotentialReturnCents),
		PlacedAt:        b.PlacedAtMs,
		ResultAt:        b.ResultAtMs,
	}
}

func matchToDTO(rec *bankroll.MatchRecord) dto.MatchResponse {
	return dto.MatchResponse{
		ID:        rec.ID,
		Timestamp: rec.TimestampMs,
		Data: dto.MatchData{
			HomeTeam:  rec.Match.HomeTeam,
			AwayTeam:  rec.Match.AwayTeam,
			MatchDate: rec.Match.MatchDate,
			MatchTime: rec.Match.MatchTime,
			Odd:       rec.Match.Odd,
		},
		Result:  dto.AnalysisResult(rec.Analysis),
		BetInfo: betToDTO(rec.Bet),
	}
}

func bankToDTO(s *bankroll.BankSettings) dto.BankResponse {
	return dto.BankResponse{
		TotalBank: money.FromCents(s.TotalBankCents),
		Currency:  s.Currency,
		Display:   money.Format(s.TotalBankCents, s.Currency),
		UpdatedAt: s.UpdatedAtMs,
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
