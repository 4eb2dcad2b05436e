package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/goalscanpro/bankroll-core/internal/bankroll"
	skafka "github.com/goalscanpro/bankroll-core/internal/shared/kafka"
	"github.com/goalscanpro/bankroll-core/internal/shared/metrics"
	ev "github.com/goalscanpro/bankroll-core/pkg/contracts/events"
)

// Settler aplica a marcação won/lost (implementado pelo client HTTP do
// bankroll-service).
type Settler interface {
	SetBetStatus(ctx context.Context, matchID string, status bankroll.BetStatus) error
}

// Consumer consome resultados de partida do Kafka e liquida as apostas
// correspondentes via bankroll-service.
type Consumer struct {
	Log     *zap.Logger
	Reader  *kafkago.Reader
	DLQ     *kafkago.Writer // opcional
	Settler Settler
}

// Run roda o loop principal até o contexto ser cancelado.
func (c *Consumer) Run(ctx context.Context) {
	for {
		key, value, err := skafka.ReadNext(ctx, c.Reader)
		if err != nil {
			if ctx.Err() != nil {
				c.Log.Info("context canceled, stopping consumer")
				return
			}
			c.Log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var result ev.MatchResult
		if jerr := json.Unmarshal(value, &result); jerr != nil {
			c.Log.Error("unmarshal match_result", zap.Error(jerr))
			c.toDLQ(ctx, key, value)
			continue
		}

		if err := c.processOne(ctx, &result); err != nil {
			c.Log.Error("settle bet", zap.String("matchId", result.MatchID), zap.Error(err))
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processOne traduz o resultado em uma marcação won/lost. Retenta a mesma
// edição algumas vezes: o retry é seguro porque o motor reclassifica contra o
// estado já persistido (delta incremental, nunca duplicado). Esgotadas as
// tentativas, a mensagem vai para a DLQ.
func (c *Consumer) processOne(ctx context.Context, result *ev.MatchResult) error {
	status := bankroll.BetStatus(result.Outcome)
	if !status.Settled() {
		c.toDLQ(ctx, []byte(result.MatchID), mustJSON(result))
		return errors.New("unknown outcome " + result.Outcome)
	}

	const retries = 3
	var err error
	for i := 0; i < retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(300*i) * time.Millisecond)
		}
		err = c.Settler.SetBetStatus(ctx, result.MatchID, status)
		if err == nil {
			metrics.SettlementsTotal.WithLabelValues(result.Outcome).Inc()
			return nil
		}
		if errors.Is(err, bankroll.ErrRecordNotFound) || errors.Is(err, bankroll.ErrInvalidBet) {
			// resultado de partida que não acompanhamos: descarta
			c.Log.Debug("result without tracked bet", zap.String("matchId", result.MatchID))
			return nil
		}
	}

	c.toDLQ(ctx, []byte(result.MatchID), mustJSON(result))
	return err
}

func (c *Consumer) toDLQ(ctx context.Context, key, value []byte) {
	if c.DLQ == nil {
		return
	}
	if err := skafka.WriteJSON(ctx, c.DLQ, string(key), value); err != nil {
		c.Log.Warn("dlq write", zap.Error(err))
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
