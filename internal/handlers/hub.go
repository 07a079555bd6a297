package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mossy-p/signalhub/internal/ids"
	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/mossy-p/signalhub/internal/signaling"
	"github.com/rs/zerolog/log"
)

var ErrHubStopped = errors.New("hub stopped")

type opKind int

const (
	opConnect opKind = iota
	opFrame
	opClosed
	opCall
)

type hubOp struct {
	kind   opKind
	client *Client
	origin string
	env    models.Envelope
	fn     func(*signaling.Server)
	done   chan struct{}
}

// Hub is the connection dispatcher. A single goroutine (Run) owns the
// signaling.Server and every connection's dispatch table, and handles each
// inbound op to completion before taking the next.
type Hub struct {
	server      *signaling.Server
	ids         ids.Generator
	clients     map[session.ID]*Client
	dispatchers map[session.ID]*signaling.Dispatcher

	inbox   chan hubOp
	stopped chan struct{}
	// stopping silences Emit while Run tears every connection down
	stopping bool
}

func NewHub(opts signaling.Options) *Hub {
	if opts.IDs == nil {
		opts.IDs = ids.UUID{}
	}
	h := &Hub{
		ids:         opts.IDs,
		clients:     make(map[session.ID]*Client),
		dispatchers: make(map[session.ID]*signaling.Dispatcher),
		inbox:       make(chan hubOp, 256),
		stopped:     make(chan struct{}),
	}
	h.server = signaling.NewServer(h, opts)
	return h
}

// Run processes ops until ctx is done, then closes every connection
func (h *Hub) Run(ctx context.Context) {
	log.Info().Str("module", "hub").Msg("dispatch loop started")
	defer func() {
		close(h.stopped)
		h.stopping = true
		for id, c := range h.clients {
			if d := h.dispatchers[id]; d != nil {
				d.Close()
			}
			c.Close()
		}
		log.Info().Str("module", "hub").Msg("dispatch loop stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-h.inbox:
			h.handle(op)
		}
	}
}

func (h *Hub) handle(op hubOp) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "hub").Interface("panic", r).Msg("op panicked")
		}
		if op.done != nil {
			close(op.done)
		}
	}()

	switch op.kind {
	case opConnect:
		h.connect(op.client, op.origin)
	case opFrame:
		h.frame(op.client, op.env)
	case opClosed:
		h.closed(op.client)
	case opCall:
		op.fn(h.server)
	}
}

func (h *Hub) connect(c *Client, origin string) {
	h.clients[c.ID] = c
	d, err := h.server.Connect(c.ID, origin, c.Close)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Str("sid", string(c.ID)).Msg("connect failed")
		delete(h.clients, c.ID)
		c.Close()
		return
	}
	h.dispatchers[c.ID] = d
}

func (h *Hub) frame(c *Client, env models.Envelope) {
	d, ok := h.dispatchers[c.ID]
	if !ok {
		return
	}
	var ack signaling.Ack
	if env.Ack != nil {
		n := *env.Ack
		ack = func(err error, result any) { h.sendAck(c.ID, n, err, result) }
	}
	if err := d.Dispatch(env.Event, env.Data, ack); err != nil {
		log.Warn().Err(err).Str("module", "hub").Str("sid", string(c.ID)).Msg("dispatch failed")
	}
}

func (h *Hub) closed(c *Client) {
	if h.clients[c.ID] != c {
		return
	}
	if d := h.dispatchers[c.ID]; d != nil {
		d.Close()
	}
	delete(h.dispatchers, c.ID)
	delete(h.clients, c.ID)
	c.Close()
}

// Emit implements signaling.Outbox. Only the hub goroutine calls it.
func (h *Hub) Emit(to session.ID, env models.Envelope) {
	if h.stopping {
		return
	}
	c, ok := h.clients[to]
	if !ok {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("failed to marshal frame")
		return
	}
	if err := c.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "hub").Str("sid", string(to)).Str("event", string(env.Event)).Msg("dropped frame")
	}
}

// sendAck replies ["<error>"] on failure and [null, result] on success
func (h *Hub) sendAck(to session.ID, n int64, err error, result any) {
	args := []any{nil, result}
	if err != nil {
		args = []any{err.Error()}
	}
	env, merr := models.NewEnvelope(models.EventAck, args)
	if merr != nil {
		log.Error().Err(merr).Str("module", "hub").Msg("failed to marshal ack")
		return
	}
	env.Ack = &n
	h.Emit(to, env)
}

func (h *Hub) enqueue(ctx context.Context, op hubOp) error {
	select {
	case h.inbox <- op:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the dispatch goroutine and waits for it to finish
func (h *Hub) Do(ctx context.Context, fn func(*signaling.Server)) error {
	done := make(chan struct{})
	if err := h.enqueue(ctx, hubOp{kind: opCall, fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewSessionID hands out the id for a new connection
func (h *Hub) NewSessionID() session.ID {
	return session.ID(h.ids.NewID())
}
