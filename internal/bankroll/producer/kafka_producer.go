package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/goalscanpro/bankroll-core/internal/bankroll/pubsub"
	"github.com/goalscanpro/bankroll-core/pkg/contracts/events"
)

// KafkaPublisher implementa bankroll.Publisher: eventos de domínio no Kafka e
// broadcast do saldo no canal Redis (quando configurado).
type KafkaPublisher struct {
	BankWriter *kafka.Writer
	BetWriter  *kafka.Writer
	Broadcast  *pubsub.RedisBroadcaster // opcional
}

func NewKafkaPublisher(bankWriter, betWriter *kafka.Writer, broadcast *pubsub.RedisBroadcaster) *KafkaPublisher {
	return &KafkaPublisher{BankWriter: bankWriter, BetWriter: betWriter, Broadcast: broadcast}
}

func (p *KafkaPublisher) PublishBankUpdated(ctx context.Context, e events.BankUpdated) error {
	b, _ := json.Marshal(e)
	if p.Broadcast != nil {
		_ = p.Broadcast.Publish(ctx, b)
	}
	return p.BankWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	b, _ := json.Marshal(e)
	return p.BetWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}
