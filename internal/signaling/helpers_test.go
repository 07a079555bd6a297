package signaling

import (
	"encoding/json"
	"testing"

	"github.com/mossy-p/signalhub/internal/ids"
	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	to  session.ID
	env models.Envelope
}

type recorder struct {
	frames      []sentFrame
	panicOnEmit bool
}

func (r *recorder) Emit(to session.ID, env models.Envelope) {
	if r.panicOnEmit {
		panic("outbox exploded")
	}
	r.frames = append(r.frames, sentFrame{to: to, env: env})
}

func (r *recorder) reset() { r.frames = nil }

func (r *recorder) framesTo(id session.ID) []models.Envelope {
	var out []models.Envelope
	for _, f := range r.frames {
		if f.to == id {
			out = append(out, f.env)
		}
	}
	return out
}

type presenceLog struct {
	events []string
}

func (p *presenceLog) Joined(room string, id session.ID) {
	p.events = append(p.events, "join:"+room+":"+string(id))
}

func (p *presenceLog) Left(room string, id session.ID) {
	p.events = append(p.events, "leave:"+room+":"+string(id))
}

type ackCall struct {
	calls  int
	err    error
	result any
}

func (a *ackCall) fn() Ack {
	return func(err error, result any) {
		a.calls++
		a.err = err
		a.result = result
	}
}

func newTestServer(t *testing.T, maxClients int) (*Server, *recorder) {
	t.Helper()
	out := &recorder{}
	s := NewServer(out, Options{
		MaxClients: maxClients,
		IDs:        &ids.Sequence{Prefix: "room"},
	})
	return s, out
}

func connect(t *testing.T, s *Server, id session.ID) *Dispatcher {
	t.Helper()
	d, err := s.Connect(id, "", nil)
	require.NoError(t, err)
	return d
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func decode[T any](t *testing.T, env models.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func requireInvariants(t *testing.T, s *Server) {
	t.Helper()
	for _, summary := range s.Rooms.List() {
		require.Positive(t, summary.Clients)
		for _, id := range s.Rooms.Members(summary.Name) {
			sess, err := s.Sessions.Get(id)
			require.NoError(t, err, "room member %s must be registered", id)
			require.Equal(t, summary.Name, sess.Room)
		}
	}
}
