package chat

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "chat:"

// Bridge carries room-scoped payloads from the hub that publishes them to
// every hub subscribed to the room. The redis implementation fans out across
// server instances; the loopback one keeps everything in-process and is what
// tests and redis-less deployments use.
type Bridge interface {
	Publish(ctx context.Context, room string, payload []byte) error
	// Subscribe blocks, invoking deliver for every published payload,
	// until ctx is canceled.
	Subscribe(ctx context.Context, deliver func(room string, payload []byte)) error
}

type loopbackMsg struct {
	room    string
	payload []byte
}

type LoopbackBridge struct {
	ch chan loopbackMsg
}

func NewLoopbackBridge() *LoopbackBridge {
	return &LoopbackBridge{ch: make(chan loopbackMsg, 256)}
}

func (b *LoopbackBridge) Publish(ctx context.Context, room string, payload []byte) error {
	select {
	case b.ch <- loopbackMsg{room: room, payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LoopbackBridge) Subscribe(ctx context.Context, deliver func(room string, payload []byte)) error {
	for {
		select {
		case m := <-b.ch:
			deliver(m.room, m.payload)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type RedisBridge struct {
	rdb *redis.Client
}

func NewRedisBridge(rdb *redis.Client) *RedisBridge {
	return &RedisBridge{rdb: rdb}
}

func (b *RedisBridge) Publish(ctx context.Context, room string, payload []byte) error {
	return b.rdb.Publish(ctx, channelPrefix+room, payload).Err()
}

func (b *RedisBridge) Subscribe(ctx context.Context, deliver func(room string, payload []byte)) error {
	pubsub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			room := strings.TrimPrefix(m.Channel, channelPrefix)
			deliver(room, []byte(m.Payload))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
