package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goalscanpro/bankroll-core/internal/bankroll"
)

const (
	keyBankSettings = "bank:settings"
	keySavedMatches = "matches:all"

	// espelho de leitura, não fonte de verdade: TTL generoso
	mirrorTTL = 24 * time.Hour
)

// CachedBankStore decora um BankStore com um espelho Redis: escrita bem
// sucedida atualiza o espelho (melhor esforço) e leitura cai para o espelho
// quando o Postgres está fora. É o "cache local de fallback" da plataforma.
type CachedBankStore struct {
	inner bankroll.BankStore
	rdb   *redis.Client
	log   *zap.Logger
}

func NewCachedBankStore(inner bankroll.BankStore, rdb *redis.Client, log *zap.Logger) *CachedBankStore {
	return &CachedBankStore{inner: inner, rdb: rdb, log: log}
}

func (c *CachedBankStore) LoadBankSettings(ctx context.Context) (*bankroll.BankSettings, error) {
	s, err := c.inner.LoadBankSettings(ctx)
	if err == nil {
		if s != nil {
			c.mirror(ctx, keyBankSettings, s)
		}
		return s, nil
	}

	b, rerr := c.rdb.Get(ctx, keyBankSettings).Bytes()
	if rerr != nil {
		return nil, err // sem fallback disponível: devolve o erro original
	}
	var cached bankroll.BankSettings
	if jerr := json.Unmarshal(b, &cached); jerr != nil {
		return nil, err
	}
	c.log.Warn("bank load from postgres failed, serving redis mirror", zap.Error(err))
	return &cached, nil
}

func (c *CachedBankStore) SaveBankSettings(ctx context.Context, s bankroll.BankSettings) (*bankroll.BankSettings, error) {
	saved, err := c.inner.SaveBankSettings(ctx, s)
	if err != nil {
		return nil, err
	}
	c.mirror(ctx, keyBankSettings, saved)
	return saved, nil
}

func (c *CachedBankStore) mirror(ctx context.Context, key string, v any) {
	b, _ := json.Marshal(v)
	if err := c.rdb.Set(ctx, key, b, mirrorTTL).Err(); err != nil {
		c.log.Warn("redis mirror set failed", zap.String("key", key), zap.Error(err))
	}
}

// CachedRecordStore espelha a lista de análises salvas da mesma forma.
// Mutações invalidam o espelho; a próxima listagem o reconstrói.
type CachedRecordStore struct {
	inner bankroll.RecordStore
	rdb   *redis.Client
	log   *zap.Logger
}

func NewCachedRecordStore(inner bankroll.RecordStore, rdb *redis.Client, log *zap.Logger) *CachedRecordStore {
	return &CachedRecordStore{inner: inner, rdb: rdb, log: log}
}

func (c *CachedRecordStore) LoadMatchRecords(ctx context.Context) ([]bankroll.MatchRecord, error) {
	recs, err := c.inner.LoadMatchRecords(ctx)
	if err == nil {
		b, _ := json.Marshal(recs)
		if serr := c.rdb.Set(ctx, keySavedMatches, b, mirrorTTL).Err(); serr != nil {
			c.log.Warn("redis mirror set failed", zap.String("key", keySavedMatches), zap.Error(serr))
		}
		return recs, nil
	}

	b, rerr := c.rdb.Get(ctx, keySavedMatches).Bytes()
	if rerr != nil {
		return nil, err
	}
	var cached []bankroll.MatchRecord
	if jerr := json.Unmarshal(b, &cached); jerr != nil {
		return nil, err
	}
	c.log.Warn("records load from postgres failed, serving redis mirror", zap.Error(err))
	return cached, nil
}

func (c *CachedRecordStore) GetMatchRecord(ctx context.Context, id string) (*bankroll.MatchRecord, error) {
	return c.inner.GetMatchRecord(ctx, id)
}

func (c *CachedRecordStore) UpsertMatchRecord(ctx context.Context, rec bankroll.MatchRecord) (*bankroll.MatchRecord, error) {
	out, err := c.inner.UpsertMatchRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return out, nil
}

func (c *CachedRecordStore) DeleteMatchRecord(ctx context.Context, id string) error {
	if err := c.inner.DeleteMatchRecord(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedRecordStore) invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, keySavedMatches).Err(); err != nil {
		c.log.Warn("redis mirror invalidate failed", zap.Error(err))
	}
}
