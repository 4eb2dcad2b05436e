package bankroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBankStore guarda a banca em memória e permite injetar falhas e atrasos.
type fakeBankStore struct {
	settings *BankSettings
	loadErr  error
	saveErr  error
	saves    int

	// sincronização do teste de reentrância
	entered chan struct{}
	release chan struct{}
}

func (f *fakeBankStore) LoadBankSettings(ctx context.Context) (*BankSettings, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.settings == nil {
		return nil, nil
	}
	s := *f.settings
	return &s, nil
}

func (f *fakeBankStore) SaveBankSettings(ctx context.Context, s BankSettings) (*BankSettings, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saves++
	f.settings = &s
	out := s
	return &out, nil
}

type fakeRecordStore struct {
	recs      map[string]MatchRecord
	upsertErr error

	// sincronização: pausa o Get no meio de uma leitura
	getEntered chan struct{}
	getRelease chan struct{}
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{recs: map[string]MatchRecord{}}
}

func (f *fakeRecordStore) LoadMatchRecords(ctx context.Context) ([]MatchRecord, error) {
	out := make([]MatchRecord, 0, len(f.recs))
	for _, r := range f.recs {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRecordStore) GetMatchRecord(ctx context.Context, id string) (*MatchRecord, error) {
	if f.getEntered != nil {
		f.getEntered <- struct{}{}
		<-f.getRelease
	}
	r, ok := f.recs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeRecordStore) UpsertMatchRecord(ctx context.Context, rec MatchRecord) (*MatchRecord, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if rec.ID == "" {
		rec.ID = "generated-id"
	}
	f.recs[rec.ID] = rec
	out := rec
	return &out, nil
}

func (f *fakeRecordStore) DeleteMatchRecord(ctx context.Context, id string) error {
	delete(f.recs, id)
	return nil
}

func newTestEngine(bank *fakeBankStore, recs *fakeRecordStore) *Engine {
	e := NewEngine(zap.NewNop(), bank, recs, nil, "BRL")
	e.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return e
}

func pendingBet(stakeCents int64, odd float64) BetInfo {
	return BetInfo{
		Status:               StatusPending,
		BetAmountCents:       stakeCents,
		Odd:                  odd,
		PotentialReturnCents: int64(float64(stakeCents) * odd),
	}
}

func record(id string, bet BetInfo) MatchRecord {
	return MatchRecord{
		ID:    id,
		Match: MatchData{HomeTeam: "Grêmio", AwayTeam: "Inter"},
		Bet:   bet,
	}
}

func TestApplyBetEdit_NewPendingReservesStake(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)

	got, err := e.ApplyBetEdit(context.Background(), record("", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(8000), bank.settings.TotalBankCents)
	assert.Equal(t, "generated-id", got.ID) // eco canônico do store
	assert.Equal(t, StatusPending, got.Bet.Status)
	assert.NotZero(t, got.Bet.PlacedAtMs)
	assert.Nil(t, got.Bet.ResultAtMs)
}

// Propriedade: salvar de novo sem mudar nada nunca mexe na banca.
func TestApplyBetEdit_IdempotentNoop(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)

	bet := pendingBet(2000, 2.0)
	first, err := e.ApplyBetEdit(context.Background(), record("m1", bet), nil)
	require.NoError(t, err)
	require.Equal(t, int64(8000), bank.settings.TotalBankCents)
	savesAfterFirst := bank.saves

	// re-save com a mesma aposta (ex.: edição de um campo não relacionado)
	prior := first.Bet
	_, err = e.ApplyBetEdit(context.Background(), *first, &prior)
	require.NoError(t, err)
	_, err = e.ApplyBetEdit(context.Background(), *first, &prior)
	require.NoError(t, err)

	assert.Equal(t, int64(8000), bank.settings.TotalBankCents)
	assert.Equal(t, savesAfterFirst, bank.saves, "no bank write on unchanged re-save")
}

// Propriedade: pending -> cancelled devolve a banca ao valor original.
func TestApplyBetEdit_CancellationConserves(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 12345, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)

	saved, err := e.ApplyBetEdit(context.Background(), record("m1", pendingBet(777, 1.8)), nil)
	require.NoError(t, err)

	prior := saved.Bet
	cancelled := *saved
	cancelled.Bet.Status = StatusCancelled
	_, err = e.ApplyBetEdit(context.Background(), cancelled, &prior)
	require.NoError(t, err)

	assert.Equal(t, int64(12345), bank.settings.TotalBankCents)
}

// Cenário concreto da banca: 100 -> 80 -> 120 -> 110.
func TestApplyBetEdit_FullScenario(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	// aposta pendente: stake 20, odd 2.0
	saved, err := e.ApplyBetEdit(ctx, record("m1", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), bank.settings.TotalBankCents)

	// marca como ganha
	saved, err = e.SetBetStatus(ctx, saved.ID, StatusWon)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), bank.settings.TotalBankCents)
	require.NotNil(t, saved.Bet.ResultAtMs)

	// edita o retorno para odd 1.5 ainda como won: delta -10
	prior := saved.Bet
	edited := *saved
	edited.Bet.Odd = 1.5
	edited.Bet.PotentialReturnCents = 3000
	_, err = e.ApplyBetEdit(ctx, edited, &prior)
	require.NoError(t, err)
	assert.Equal(t, int64(11000), bank.settings.TotalBankCents)
}

// Propriedade: editar a stake de 10 para 15 com status pendente custa -5.
func TestApplyBetEdit_StakeEditWhilePending(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	saved, err := e.ApplyBetEdit(ctx, record("m1", pendingBet(1000, 2.0)), nil)
	require.NoError(t, err)
	require.Equal(t, int64(9000), bank.settings.TotalBankCents)

	prior := saved.Bet
	edited := *saved
	edited.Bet.BetAmountCents = 1500
	edited.Bet.PotentialReturnCents = 3000
	_, err = e.ApplyBetEdit(ctx, edited, &prior)
	require.NoError(t, err)

	assert.Equal(t, int64(8500), bank.settings.TotalBankCents)
}

// Propriedade: a banca nunca fica negativa; resultado negativo trava em zero.
func TestApplyBetEdit_ClampsAtZero(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 500, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)

	_, err := e.ApplyBetEdit(context.Background(), record("m1", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), bank.settings.TotalBankCents)
}

// Remoção: o estorno é calculado contra os valores anteriores, não os propostos.
func TestApplyBetEdit_RemovalRefundsPriorStake(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	saved, err := e.ApplyBetEdit(ctx, record("m1", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)
	require.Equal(t, int64(8000), bank.settings.TotalBankCents)

	prior := saved.Bet
	removed := *saved
	removed.Bet = BetInfo{} // stake zero = sem aposta
	got, err := e.ApplyBetEdit(ctx, removed, &prior)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), bank.settings.TotalBankCents)
	assert.Equal(t, StatusNone, got.Bet.Status)
}

func TestApplyBetEdit_ValidationBeforeIO(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)

	bad := record("m1", BetInfo{Status: StatusPending, BetAmountCents: -100})
	_, err := e.ApplyBetEdit(context.Background(), bad, nil)
	assert.ErrorIs(t, err, ErrInvalidBet)
	assert.Zero(t, bank.saves)
	assert.Empty(t, recs.recs)

	unknown := record("m1", BetInfo{Status: "meio-ganha", BetAmountCents: 100})
	_, err = e.ApplyBetEdit(context.Background(), unknown, nil)
	assert.ErrorIs(t, err, ErrInvalidBet)
}

// Falha na escrita da banca: aborta tudo, nada persiste.
func TestApplyBetEdit_BankWriteFailureAborts(t *testing.T) {
	bank := &fakeBankStore{
		settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"},
		saveErr:  errors.New("pg down"),
	}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)

	_, err := e.ApplyBetEdit(context.Background(), record("m1", pendingBet(2000, 2.0)), nil)
	assert.ErrorIs(t, err, ErrBankWrite)
	assert.Empty(t, recs.recs, "record must not persist after bank failure")
}

// Falha no registro depois da banca: erro de inconsistência, e o retry da
// mesma edição (agora com prior atualizado) calcula delta incremental zero.
func TestApplyBetEdit_RecordWriteFailureSelfHeals(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	recs.upsertErr = errors.New("pg down")
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	bet := pendingBet(2000, 2.0)
	_, err := e.ApplyBetEdit(ctx, record("m1", bet), nil)
	assert.ErrorIs(t, err, ErrRecordWrite)
	assert.Equal(t, int64(8000), bank.settings.TotalBankCents, "bank already advanced")

	// retry do chamador com o prior refletindo o que já foi aplicado
	recs.upsertErr = nil
	prior := bet
	got, err := e.ApplyBetEdit(ctx, record("m1", bet), &prior)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), bank.settings.TotalBankCents, "no double-apply on retry")
	assert.Equal(t, StatusPending, got.Bet.Status)
}

// Propriedade: segunda edição durante o I/O da primeira é rejeitada inteira.
func TestApplyBetEdit_ReentrancyRejected(t *testing.T) {
	bank := &fakeBankStore{
		settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"},
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := e.ApplyBetEdit(ctx, record("m1", pendingBet(2000, 2.0)), nil)
		done <- err
	}()

	<-bank.entered // primeira edição parada dentro do save da banca

	_, err := e.ApplyBetEdit(ctx, record("m2", pendingBet(5000, 3.0)), nil)
	assert.ErrorIs(t, err, ErrEditInFlight)

	close(bank.release) // deixa o primeiro save concluir
	require.NoError(t, <-done)

	// só o delta da primeira edição foi aplicado
	assert.Equal(t, int64(8000), bank.settings.TotalBankCents)
	_, hasSecond := recs.recs["m2"]
	assert.False(t, hasSecond)
}

func TestSetBetStatus_ShortCircuitsOnSameStatus(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	saved, err := e.ApplyBetEdit(ctx, record("m1", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)
	_, err = e.SetBetStatus(ctx, saved.ID, StatusWon)
	require.NoError(t, err)
	require.Equal(t, int64(12000), bank.settings.TotalBankCents)
	saves := bank.saves

	// evento duplicado da UI
	_, err = e.SetBetStatus(ctx, saved.ID, StatusWon)
	require.NoError(t, err)
	assert.Equal(t, saves, bank.saves)
	assert.Equal(t, int64(12000), bank.settings.TotalBankCents)
}

// Dois eventos won duplicados chegando em paralelo (UI + worker): a leitura
// do prior acontece dentro da trava, então o segundo é rejeitado inteiro em
// vez de aplicar pending -> won de novo contra um prior antigo.
func TestSetBetStatus_ConcurrentDuplicateCreditsOnce(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	saved, err := e.ApplyBetEdit(ctx, record("m1", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)
	require.Equal(t, int64(8000), bank.settings.TotalBankCents)

	recs.getEntered = make(chan struct{})
	recs.getRelease = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := e.SetBetStatus(ctx, saved.ID, StatusWon)
		done <- err
	}()

	<-recs.getEntered // primeiro evento parado lendo o registro, trava já presa

	// duplicata no meio do voo: rejeitada antes de qualquer leitura
	_, err = e.SetBetStatus(ctx, saved.ID, StatusWon)
	assert.ErrorIs(t, err, ErrEditInFlight)

	close(recs.getRelease)
	require.NoError(t, <-done)

	assert.Equal(t, int64(12000), bank.settings.TotalBankCents, "payout credited once")
}

func TestSetBetStatus_UnknownRecord(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	e := newTestEngine(bank, newFakeRecordStore())

	_, err := e.SetBetStatus(context.Background(), "nope", StatusWon)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = e.SetBetStatus(context.Background(), "nope", StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidBet)
}

func TestDeleteRecord_RefundsEffectiveBet(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	saved, err := e.ApplyBetEdit(ctx, record("m1", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)
	require.Equal(t, int64(8000), bank.settings.TotalBankCents)

	require.NoError(t, e.DeleteRecord(ctx, saved.ID))
	assert.Equal(t, int64(10000), bank.settings.TotalBankCents)
	assert.Empty(t, recs.recs)
}

// Status alterado para fora de won/lost limpa o resultAt.
func TestApplyBetEdit_ResultAtLifecycle(t *testing.T) {
	bank := &fakeBankStore{settings: &BankSettings{TotalBankCents: 10000, Currency: "BRL"}}
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)
	ctx := context.Background()

	saved, err := e.ApplyBetEdit(ctx, record("m1", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)
	require.Nil(t, saved.Bet.ResultAtMs)

	saved, err = e.SetBetStatus(ctx, saved.ID, StatusWon)
	require.NoError(t, err)
	require.NotNil(t, saved.Bet.ResultAtMs)
	stamped := *saved.Bet.ResultAtMs

	// reedição mantendo won não re-carimba
	prior := saved.Bet
	_, err = e.ApplyBetEdit(ctx, *saved, &prior)
	require.NoError(t, err)
	again, _ := recs.GetMatchRecord(ctx, saved.ID)
	assert.Equal(t, stamped, *again.Bet.ResultAtMs)

	// voltar para pendente limpa o resultado
	prior = again.Bet
	back := *again
	back.Bet.Status = StatusPending
	_, err = e.ApplyBetEdit(ctx, back, &prior)
	require.NoError(t, err)
	final, _ := recs.GetMatchRecord(ctx, saved.ID)
	assert.Nil(t, final.Bet.ResultAtMs)
}

// Primeiro save sem banca existente cria a linha default.
func TestApplyBetEdit_CreatesBankOnFirstWrite(t *testing.T) {
	bank := &fakeBankStore{} // nunca salva
	recs := newFakeRecordStore()
	e := newTestEngine(bank, recs)

	_, err := e.ApplyBetEdit(context.Background(), record("m1", pendingBet(2000, 2.0)), nil)
	require.NoError(t, err)

	require.NotNil(t, bank.settings)
	assert.Equal(t, "BRL", bank.settings.Currency)
	assert.Equal(t, int64(0), bank.settings.TotalBankCents) // 0 - 2000 trava em 0
}

func TestSetBank_DirectEdit(t *testing.T) {
	bank := &fakeBankStore{}
	e := newTestEngine(bank, newFakeRecordStore())

	got, err := e.SetBank(context.Background(), 25000, "")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), got.TotalBankCents)
	assert.Equal(t, "BRL", got.Currency)

	_, err = e.SetBank(context.Background(), 100, "DINHEIROS")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

// updatedAt nunca anda para trás, mesmo com relógio atrasado.
func TestApplyBetEdit_UpdatedAtMonotonic(t *testing.T) {
	future := int64(1_800_000_000_000)
	bank := &fakeBankStore{settings: &BankSettings{
		TotalBankCents: 10000, Currency: "BRL", UpdatedAtMs: future,
	}}
	e := newTestEngine(bank, newFakeRecordStore()) // now < future

	_, err := e.ApplyBetEdit(context.Background(), record("m1", pendingBet(100, 2.0)), nil)
	require.NoError(t, err)
	assert.Equal(t, future, bank.settings.UpdatedAtMs)
}
