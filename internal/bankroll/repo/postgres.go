package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/goalscanpro/bankroll-core/internal/bankroll"
)

// ID fixo da linha de banca: o app tem uma única banca implícita.
const bankRowID = "default"

// BankPostgres implementa bankroll.BankStore em Postgres.
type BankPostgres struct{ db *sql.DB }

func NewBankPostgres(db *sql.DB) *BankPostgres { return &BankPostgres{db: db} }

// LoadBankSettings busca a linha única; (nil, nil) quando nunca houve save.
func (p *BankPostgres) LoadBankSettings(ctx context.Context) (*bankroll.BankSettings, error) {
	var s bankroll.BankSettings
	err := p.db.QueryRowContext(ctx,
		`SELECT total_bank_cents, currency, updated_at_ms FROM bank_settings WHERE id=$1`,
		bankRowID,
	).Scan(&s.TotalBankCents, &s.Currency, &s.UpdatedAtMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveBankSettings sobrescreve a linha única (criando no primeiro save) e
// devolve o eco canônico do banco.
func (p *BankPostgres) SaveBankSettings(ctx context.Context, s bankroll.BankSettings) (*bankroll.BankSettings, error) {
	var out bankroll.BankSettings
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO bank_settings (id, total_bank_cents, currency, updated_at_ms)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET
			total_bank_cents = EXCLUDED.total_bank_cents,
			currency         = EXCLUDED.currency,
			updated_at_ms    = EXCLUDED.updated_at_ms
		RETURNING total_bank_cents, currency, updated_at_ms`,
		bankRowID, s.TotalBankCents, s.Currency, s.UpdatedAtMs,
	).Scan(&out.TotalBankCents, &out.Currency, &out.UpdatedAtMs)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchPostgres implementa bankroll.RecordStore em Postgres.
type MatchPostgres struct{ db *sql.DB }

func NewMatchPostgres(db *sql.DB) *MatchPostgres { return &MatchPostgres{db: db} }

const matchColumns = `id, ts_ms, home_team, away_team, match_date, match_time, odd,
	probability, confidence_score, expected_value,
	bet_status, bet_amount_cents, bet_odd, potential_return_cents, placed_at_ms, result_at_ms`

// LoadMatchRecords lista as análises salvas, mais recentes primeiro.
func (p *MatchPostgres) LoadMatchRecords(ctx context.Context) ([]bankroll.MatchRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM saved_matches ORDER BY ts_ms DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bankroll.MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetMatchRecord busca uma análise pelo id; (nil, nil) quando não existe.
func (p *MatchPostgres) GetMatchRecord(ctx context.Context, id string) (*bankroll.MatchRecord, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM saved_matches WHERE id=$1`, id)
	rec, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpsertMatchRecord grava a análise (id gerado no primeiro save) e devolve a
// linha como ficou no banco, para o chamador convergir com o estado durável.
func (p *MatchPostgres) UpsertMatchRecord(ctx context.Context, rec bankroll.MatchRecord) (*bankroll.MatchRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	var resultAt sql.NullInt64
	if rec.Bet.ResultAtMs != nil {
		resultAt = sql.NullInt64{Int64: *rec.Bet.ResultAtMs, Valid: true}
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO saved_matches (`+matchColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			ts_ms                  = EXCLUDED.ts_ms,
			home_team              = EXCLUDED.home_team,
			away_team              = EXCLUDED.away_team,
			match_date             = EXCLUDED.match_date,
			match_time             = EXCLUDED.match_time,
			odd                    = EXCLUDED.odd,
			probability            = EXCLUDED.probability,
			confidence_score       = EXCLUDED.confidence_score,
			expected_value         = EXCLUDED.expected_value,
			bet_status             = EXCLUDED.bet_status,
			bet_amount_cents       = EXCLUDED.bet_amount_cents,
			bet_odd                = EXCLUDED.bet_odd,
			potential_return_cents = EXCLUDED.potential_return_cents,
			placed_at_ms           = EXCLUDED.placed_at_ms,
			result_at_ms           = EXCLUDED.result_at_ms
		RETURNING `+matchColumns,
		rec.ID, rec.TimestampMs,
		rec.Match.HomeTeam, rec.Match.AwayTeam, rec.Match.MatchDate, rec.Match.MatchTime, rec.Match.Odd,
		rec.Analysis.Probability, rec.Analysis.ConfidenceScore, rec.Analysis.ExpectedValue,
		string(rec.Bet.Status), rec.Bet.BetAmountCents, rec.Bet.Odd, rec.Bet.PotentialReturnCents,
		rec.Bet.PlacedAtMs, resultAt,
	)
	return scanMatch(row)
}

// DeleteMatchRecord apaga a análise; ausente não é erro.
func (p *MatchPostgres) DeleteMatchRecord(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM saved_matches WHERE id=$1`, id)
	return err
}

// scanner cobre *sql.Row e *sql.Rows
type scanner interface{ Scan(dest ...any) error }

func scanMatch(s scanner) (*bankroll.MatchRecord, error) {
	var rec bankroll.MatchRecord
	var status string
	var resultAt sql.NullInt64

	err := s.Scan(
		&rec.ID, &rec.TimestampMs,
		&rec.Match.HomeTeam, &rec.Match.AwayTeam, &rec.Match.MatchDate, &rec.Match.MatchTime, &rec.Match.Odd,
		&rec.Analysis.Probability, &rec.Analysis.ConfidenceScore, &rec.Analysis.ExpectedValue,
		&status, &rec.Bet.BetAmountCents, &rec.Bet.Odd, &rec.Bet.PotentialReturnCents,
		&rec.Bet.PlacedAtMs, &resultAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Bet.Status = bankroll.BetStatus(status)
	if resultAt.Valid {
		rec.Bet.ResultAtMs = &resultAt.Int64
	}
	return &rec, nil
}
