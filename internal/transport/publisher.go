// Package transport implements the one-to-many frame channel.
//
// Delivery discipline on both sides: drop frames, never queue. Each
// subscriber session holds at most one pending message (the high-water mark);
// publishing into a saturated session evicts the older pending message in
// favor of the newer one. A consumer therefore observes monotonic freshness,
// not completeness — gaps are expected and tolerated.
//
// Wire format: TCP stream of self-contained messages, each a 4-byte
// big-endian length prefix followed by a msgpack-encoded codec.Envelope.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/visiona/framecast/internal/codec"
)

// ErrClosed is returned by operations on a closed publisher or subscriber.
var ErrClosed = errors.New("transport: closed")

// PublisherStats is a snapshot of publisher-side delivery counters.
type PublisherStats struct {
	// Published counts Publish calls.
	Published uint64

	// Unrouted counts publishes made while no subscriber was connected.
	Unrouted uint64

	// Subscribers maps session id to per-session counters.
	Subscribers map[string]SessionStats
}

// SessionStats tracks one subscriber session.
type SessionStats struct {
	Sent    uint64
	Evicted uint64
}

// session is one connected subscriber on the publisher side. The sender
// goroutine drains the session slot; Publish only touches the slot, so a
// stalled connection never blocks the capture loop.
type session struct {
	id   string
	conn net.Conn
	slot *latestSlot

	sent    atomic.Uint64
	evicted atomic.Uint64
}

// Publisher owns the listening socket and fans frames out to subscribers.
type Publisher struct {
	ln net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool

	published atomic.Uint64
	unrouted  atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// Listen binds the publisher to addr (host:port). A bind failure is a
// startup failure: no Publisher is returned and the caller must abort.
func Listen(addr string) (*Publisher, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		ln:       ln,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}

	p.wg.Add(1)
	go p.acceptLoop()

	slog.Info("publisher listening", "addr", ln.Addr().String())
	return p, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (p *Publisher) Addr() net.Addr { return p.ln.Addr() }

func (p *Publisher) acceptLoop() {
	defer p.wg.Done()

	for {
		conn, err := p.ln.Accept()
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			slog.Warn("accept failed", "error", err)
			continue
		}

		s := &session{
			id:   uuid.NewString(),
			conn: conn,
			slot: newLatestSlot(),
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			conn.Close()
			return
		}
		p.sessions[s.id] = s
		p.mu.Unlock()

		slog.Info("subscriber connected", "session", s.id, "remote", conn.RemoteAddr().String())

		p.wg.Add(1)
		go p.senderLoop(s)
	}
}

// senderLoop writes the newest pending message for one session. Exactly one
// message is in flight per session; everything that arrives while a write is
// in progress collapses into the slot.
func (p *Publisher) senderLoop(s *session) {
	defer p.wg.Done()
	defer p.dropSession(s)

	for {
		select {
		case <-p.ctx.Done():
			return
		case env := <-s.slot.ch:
			if err := writeMessage(s.conn, env); err != nil {
				if p.ctx.Err() == nil {
					slog.Info("subscriber disconnected", "session", s.id, "error", err)
				}
				return
			}
			s.sent.Add(1)
		}
	}
}

func (p *Publisher) dropSession(s *session) {
	s.conn.Close()
	p.mu.Lock()
	delete(p.sessions, s.id)
	p.mu.Unlock()
}

// Publish hands one envelope to every connected subscriber and returns
// immediately. With no subscribers connected the message is silently dropped
// (counted, not an error). Publish never blocks on a slow subscriber: the
// session slot conflates to the newest message.
func (p *Publisher) Publish(env *codec.Envelope) {
	p.published.Add(1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || len(p.sessions) == 0 {
		p.unrouted.Add(1)
		return
	}

	for _, s := range p.sessions {
		if s.slot.put(env) {
			s.evicted.Add(1)
		}
	}
}

// Stats returns a snapshot of delivery counters.
func (p *Publisher) Stats() PublisherStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := PublisherStats{
		Published:   p.published.Load(),
		Unrouted:    p.unrouted.Load(),
		Subscribers: make(map[string]SessionStats, len(p.sessions)),
	}
	for id, s := range p.sessions {
		stats.Subscribers[id] = SessionStats{
			Sent:    s.sent.Load(),
			Evicted: s.evicted.Load(),
		}
	}
	return stats
}

// Close releases the listener and all subscriber connections exactly once.
// Subsequent calls are no-ops returning the first result.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		sessions := make([]*session, 0, len(p.sessions))
		for _, s := range p.sessions {
			sessions = append(sessions, s)
		}
		p.mu.Unlock()

		p.cancel()
		p.closeErr = p.ln.Close()
		for _, s := range sessions {
			s.conn.Close()
		}
		p.wg.Wait()

		slog.Info("publisher closed", "addr", p.ln.Addr().String())
	})
	return p.closeErr
}
