package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publica o saldo atualizado num canal pub/sub consumido
// pela cola de plataforma (widgets ficam fora deste repositório).
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, payload []byte) error {
	return b.r.Publish(ctx, b.channel, payload).Err()
}
