package bankroll

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/goalscanpro/bankroll-core/internal/bankroll/money"
	"github.com/goalscanpro/bankroll-core/internal/shared/metrics"
	"github.com/goalscanpro/bankroll-core/pkg/contracts/events"
)

var (
	// ErrInvalidBet cobre propostas rejeitadas antes de qualquer I/O.
	ErrInvalidBet = errors.New("invalid bet")

	// ErrEditInFlight sinaliza rejeição por reentrância: outra edição está em
	// andamento. Não é erro de aplicação; o chamador trata como no-op.
	ErrEditInFlight = errors.New("bet edit already in flight")

	// ErrBankWrite: a escrita da banca falhou antes de qualquer efeito.
	// Retryável: nada foi mutado.
	ErrBankWrite = errors.New("bank write failed")

	// ErrRecordWrite: a banca foi atualizada mas o registro da partida não.
	// O chamador deve reenviar a mesma edição; a reavaliação contra o novo
	// estado calcula o delta incremental correto em vez de duplicar.
	ErrRecordWrite = errors.New("record write failed after bank update")

	// ErrRecordNotFound: operação referenciou uma análise inexistente.
	ErrRecordNotFound = errors.New("match record not found")

	// ErrInvalidCurrency: código de moeda fora do registro ISO 4217.
	ErrInvalidCurrency = errors.New("invalid currency code")
)

// BankStore guarda a linha única de banca. Load devolve (nil, nil) quando
// nunca houve save.
type BankStore interface {
	LoadBankSettings(ctx context.Context) (*BankSettings, error)
	SaveBankSettings(ctx context.Context, s BankSettings) (*BankSettings, error)
}

// RecordStore guarda as análises salvas (com a aposta embutida).
type RecordStore interface {
	LoadMatchRecords(ctx context.Context) ([]MatchRecord, error)
	GetMatchRecord(ctx context.Context, id string) (*MatchRecord, error)
	UpsertMatchRecord(ctx context.Context, rec MatchRecord) (*MatchRecord, error)
	DeleteMatchRecord(ctx context.Context, id string) error
}

// Publisher emite os eventos de banca/aposta. Melhor esforço: falha de
// publicação nunca derruba uma edição já comprometida.
type Publisher interface {
	PublishBankUpdated(ctx context.Context, ev events.BankUpdated) error
	PublishBetSettled(ctx context.Context, ev events.BetSettled) error
}

// Engine orquestra "aplicar uma edição de aposta": decide se a banca precisa
// mudar, calcula o delta único da edição, serializa a escrita da banca e só
// então persiste o registro. É o único escritor de TotalBankCents.
type Engine struct {
	log      *zap.Logger
	bank     BankStore
	records  RecordStore
	publ     Publisher // opcional
	currency string    // moeda da banca criada no primeiro save

	// trava de reentrância: uma edição lógica por vez, para o motor inteiro.
	// Duas edições concorrentes leriam o mesmo saldo e um delta se perderia.
	busy atomic.Bool

	now func() time.Time
}

func NewEngine(log *zap.Logger, bank BankStore, records RecordStore, publ Publisher, currency string) *Engine {
	return &Engine{
		log:      log,
		bank:     bank,
		records:  records,
		publ:     publ,
		currency: currency,
		now:      time.Now,
	}
}

// ApplyBetEdit aplica uma edição lógica de aposta: rec carrega o estado
// desejado (rec.Bet é a aposta proposta) e prior é a aposta anterior, quando
// conhecida pelo chamador. Devolve o registro canônico ecoado pelo store.
func (e *Engine) ApplyBetEdit(ctx context.Context, rec MatchRecord, prior *BetInfo) (*MatchRecord, error) {
	if !e.busy.CompareAndSwap(false, true) {
		metrics.ReconcileTotal.WithLabelValues("rejected").Inc()
		e.log.Debug("edit rejected, another in flight", zap.String("matchId", rec.ID))
		return nil, ErrEditInFlight
	}
	defer e.busy.Store(false)

	return e.applyBetEditLocked(ctx, rec, prior)
}

// applyBetEditLocked é o corpo da edição; o chamador já segurou a trava.
func (e *Engine) applyBetEditLocked(ctx context.Context, rec MatchRecord, prior *BetInfo) (*MatchRecord, error) {
	if err := rec.Bet.Validate(); err != nil {
		metrics.ReconcileTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	proposed := rec.Bet.Normalized()

	var old BetInfo
	if prior != nil {
		if err := prior.Validate(); err != nil {
			metrics.ReconcileTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		old = prior.Normalized()
	}

	// Classificação da edição
	isNew := old.Status == StatusNone
	isRemoval := proposed.BetAmountCents == 0
	statusChanged := old.Status != proposed.Status
	amountChanged := old.BetAmountCents != proposed.BetAmountCents ||
		old.PotentialReturnCents != proposed.PotentialReturnCents

	var delta int64
	if isNew || isRemoval || statusChanged || amountChanged {
		// Na remoção o estorno é calculado contra o que foi de fato
		// reservado, ou seja, os valores anteriores
		effStake, effReturn := proposed.BetAmountCents, proposed.PotentialReturnCents
		if isRemoval {
			effStake, effReturn = old.BetAmountCents, old.PotentialReturnCents
		}

		delta = TransitionDelta(old.Status, proposed.Status, effStake, effReturn)
		if !statusChanged && !isNew && !isRemoval {
			delta += SameStatusAdjustment(old.Status,
				old.BetAmountCents, proposed.BetAmountCents,
				old.PotentialReturnCents, proposed.PotentialReturnCents)
		}
	}

	bankWritten := false
	if delta != 0 {
		if _, err := e.applyBankDelta(ctx, delta, rec.ID); err != nil {
			metrics.ReconcileTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		bankWritten = true
	}

	nowMs := e.now().UnixMilli()
	rec.Bet = e.stamp(proposed, nowMs)
	rec.TimestampMs = nowMs

	canonical, err := e.records.UpsertMatchRecord(ctx, rec)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("error").Inc()
		if bankWritten {
			// Banca já avançou; não há rollback automático. O retry da mesma
			// edição se auto-corrige porque o prior passa a ser o novo estado.
			return nil, fmt.Errorf("%w: %v", ErrRecordWrite, err)
		}
		return nil, fmt.Errorf("upsert match record: %w", err)
	}

	if e.publ != nil && statusChanged {
		_ = e.publ.PublishBetSettled(ctx, events.BetSettled{
			MatchID:              canonical.ID,
			OldStatus:            string(old.Status),
			NewStatus:            string(proposed.Status),
			BetAmountCents:       proposed.BetAmountCents,
			PotentialReturnCents: proposed.PotentialReturnCents,
			DeltaCents:           delta,
			TsUnixMs:             nowMs,
		})
	}

	if delta != 0 {
		metrics.ReconcileTotal.WithLabelValues("applied").Inc()
	} else {
		metrics.ReconcileTotal.WithLabelValues("noop").Inc()
	}
	return canonical, nil
}

// SetBetStatus é o atalho usado pela UI e pelo settlement-worker para marcar
// won/lost: carrega o registro atual, deriva o prior dele e delega.
func (e *Engine) SetBetStatus(ctx context.Context, matchID string, status BetStatus) (*MatchRecord, error) {
	if !status.Settled() {
		return nil, fmt.Errorf("%w: status %q not allowed here", ErrInvalidBet, string(status))
	}

	// A trava é adquirida antes da leitura do registro: o prior e o
	// curto-circuito de status igual precisam ver o resultado de qualquer
	// edição anterior, senão dois eventos won duplicados creditam duas vezes.
	if !e.busy.CompareAndSwap(false, true) {
		metrics.ReconcileTotal.WithLabelValues("rejected").Inc()
		e.log.Debug("edit rejected, another in flight", zap.String("matchId", matchID))
		return nil, ErrEditInFlight
	}
	defer e.busy.Store(false)

	rec, err := e.records.GetMatchRecord(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	prior := rec.Bet.Normalized()
	if prior.Status == status {
		// curto-circuito contra eventos duplicados da UI
		return rec, nil
	}

	next := *rec
	next.Bet.Status = status
	return e.applyBetEditLocked(ctx, next, &prior)
}

// DeleteRecord remove uma análise salva. Se havia aposta efetiva, o efeito
// dela na banca é revertido antes do delete (mesma regra da remoção).
func (e *Engine) DeleteRecord(ctx context.Context, matchID string) error {
	if !e.busy.CompareAndSwap(false, true) {
		metrics.ReconcileTotal.WithLabelValues("rejected").Inc()
		return ErrEditInFlight
	}
	defer e.busy.Store(false)

	rec, err := e.records.GetMatchRecord(ctx, matchID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrRecordNotFound
	}

	old := rec.Bet.Normalized()
	if delta := TransitionDelta(old.Status, StatusNone, old.BetAmountCents, old.PotentialReturnCents); delta != 0 {
		if _, err := e.applyBankDelta(ctx, delta, matchID); err != nil {
			metrics.ReconcileTotal.WithLabelValues("error").Inc()
			return err
		}
	}

	if err := e.records.DeleteMatchRecord(ctx, matchID); err != nil {
		return fmt.Errorf("%w: %v", ErrRecordWrite, err)
	}
	metrics.ReconcileTotal.WithLabelValues("applied").Inc()
	return nil
}

// Bank devolve a banca atual; (nil, nil) quando nunca foi salva.
func (e *Engine) Bank(ctx context.Context) (*BankSettings, error) {
	return e.bank.LoadBankSettings(ctx)
}

// Records lista as análises salvas.
func (e *Engine) Records(ctx context.Context) ([]MatchRecord, error) {
	return e.records.LoadMatchRecords(ctx)
}

// SetBank é o caminho simples de edição direta do saldo (tela de config da
// banca). Passa pela mesma trava para não intercalar com uma reconciliação.
func (e *Engine) SetBank(ctx context.Context, totalCents int64, currency string) (*BankSettings, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrEditInFlight
	}
	defer e.busy.Store(false)

	if totalCents < 0 {
		totalCents = 0
	}
	if currency == "" {
		currency = e.currency
	}
	if !money.ValidCurrency(currency) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	cur, err := e.bank.LoadBankSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankWrite, err)
	}

	next := BankSettings{
		TotalBankCents: totalCents,
		Currency:       currency,
		UpdatedAtMs:    e.nextUpdatedAt(cur),
	}
	saved, err := e.bank.SaveBankSettings(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankWrite, err)
	}

	metrics.BankBalanceCents.Set(float64(saved.TotalBankCents))
	if e.publ != nil {
		_ = e.publ.PublishBankUpdated(ctx, events.BankUpdated{
			TotalBankCents: saved.TotalBankCents,
			DeltaCents:     0,
			Currency:       saved.Currency,
			UpdatedAtMs:    saved.UpdatedAtMs,
		})
	}
	return saved, nil
}

// applyBankDelta lê o saldo, soma o delta (nunca abaixo de zero) e grava.
// Chamado sempre dentro da seção crítica da trava.
func (e *Engine) applyBankDelta(ctx context.Context, delta int64, matchID string) (*BankSettings, error) {
	cur, err := e.bank.LoadBankSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankWrite, err)
	}

	next := BankSettings{Currency: e.currency}
	if cur != nil {
		next = *cur
	}

	balance := next.TotalBankCents + delta
	if balance < 0 {
		balance = 0
	}
	next.TotalBankCents = balance
	next.UpdatedAtMs = e.nextUpdatedAt(cur)

	saved, err := e.bank.SaveBankSettings(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankWrite, err)
	}

	e.log.Info("bank updated",
		zap.String("matchId", matchID),
		zap.Int64("deltaCents", delta),
		zap.Int64("totalBankCents", saved.TotalBankCents),
	)
	metrics.BankBalanceCents.Set(float64(saved.TotalBankCents))

	if e.publ != nil {
		_ = e.publ.PublishBankUpdated(ctx, events.BankUpdated{
			TotalBankCents: saved.TotalBankCents,
			DeltaCents:     delta,
			Currency:       saved.Currency,
			MatchID:        matchID,
			UpdatedAtMs:    saved.UpdatedAtMs,
		})
	}
	return saved, nil
}

// stamp ajusta os carimbos de tempo da aposta proposta: placedAt no primeiro
// registro, resultAt só na transição para won/lost (e limpo fora delas).
func (e *Engine) stamp(b BetInfo, nowMs int64) BetInfo {
	if b.Status == StatusNone {
		return b
	}
	if b.PlacedAtMs == 0 {
		b.PlacedAtMs = nowMs
	}
	if b.Status.Settled() {
		if b.ResultAtMs == nil {
			ts := nowMs
			b.ResultAtMs = &ts
		}
	} else {
		b.ResultAtMs = nil
	}
	return b
}

// nextUpdatedAt garante updatedAt monotônico mesmo com relógio atrasado.
func (e *Engine) nextUpdatedAt(cur *BankSettings) int64 {
	ts := e.now().UnixMilli()
	if cur != nil && cur.UpdatedAtMs > ts {
		ts = cur.UpdatedAtMs
	}
	return ts
}
