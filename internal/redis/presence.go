package redis

import (
	"context"
	"sync"
	"time"

	"github.com/mossy-p/signalhub/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// setStore is the slice of the go-redis API the mirror uses
type setStore interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type presenceOp struct {
	join bool
	room string
	id   session.ID
}

// Presence mirrors room membership into Redis sets keyed room:<name>:peers,
// so other processes can see who is where. Updates are queued and written by
// a background worker; when the queue is full they are dropped.
type Presence struct {
	store setStore
	ttl   time.Duration
	queue chan presenceOp

	closeOnce sync.Once
	done      chan struct{}
}

func NewPresence(store setStore, ttl time.Duration, queueSize int) *Presence {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Presence{
		store: store,
		ttl:   ttl,
		queue: make(chan presenceOp, queueSize),
		done:  make(chan struct{}),
	}
}

func PeersKey(room string) string {
	return "room:" + room + ":peers"
}

func (p *Presence) Joined(room string, id session.ID) {
	p.enqueue(presenceOp{join: true, room: room, id: id})
}

func (p *Presence) Left(room string, id session.ID) {
	p.enqueue(presenceOp{join: false, room: room, id: id})
}

func (p *Presence) enqueue(op presenceOp) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.queue <- op:
	default:
		log.Warn().Str("module", "redis.presence").Str("room", op.room).Str("sid", string(op.id)).Msg("presence queue full, dropping update")
	}
}

// Run writes queued updates until ctx is done or Close is called
func (p *Presence) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case op := <-p.queue:
			p.apply(ctx, op)
		}
	}
}

func (p *Presence) apply(ctx context.Context, op presenceOp) {
	key := PeersKey(op.room)
	if !op.join {
		if err := p.store.SRem(ctx, key, string(op.id)).Err(); err != nil {
			log.Error().Err(err).Str("module", "redis.presence").Str("key", key).Msg("SREM failed")
		}
		return
	}
	if err := p.store.SAdd(ctx, key, string(op.id)).Err(); err != nil {
		log.Error().Err(err).Str("module", "redis.presence").Str("key", key).Msg("SADD failed")
		return
	}
	if p.ttl > 0 {
		if err := p.store.Expire(ctx, key, p.ttl).Err(); err != nil {
			log.Error().Err(err).Str("module", "redis.presence").Str("key", key).Msg("EXPIRE failed")
		}
	}
}

// Close stops the worker. Later updates are ignored.
func (p *Presence) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
