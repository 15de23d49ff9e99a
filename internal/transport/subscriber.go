package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visiona/framecast/internal/codec"
)

// ErrTimeout is the outcome of a Receive that saw no message before its
// deadline. It is not a failure: the caller retries or reports "waiting".
var ErrTimeout = errors.New("transport: receive timeout")

// reconnectInterval paces connection attempts toward the publisher.
const reconnectInterval = 500 * time.Millisecond

// SubscriberStats is a snapshot of receive-side counters.
type SubscriberStats struct {
	// Received counts messages read off the wire.
	Received uint64

	// Conflated counts messages evicted unread because a newer one arrived
	// before the caller drained the slot.
	Conflated uint64

	// Connected reports whether a connection to the publisher is up.
	Connected bool
}

// Subscriber connects to a publisher and delivers only the newest pending
// message. Connection management runs in the background: Dial returns
// immediately and the subscriber keeps retrying until the publisher appears,
// so receiving from a not-yet-bound publisher times out instead of failing.
type Subscriber struct {
	addr string
	slot *latestSlot

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	conn net.Conn

	received  atomic.Uint64
	conflated atomic.Uint64
	connected atomic.Bool

	closeOnce sync.Once
}

// Dial creates a subscriber for the publisher at addr (host:port) and starts
// connecting in the background.
func Dial(addr string) (*Subscriber, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscriber{
		addr:   addr,
		slot:   newLatestSlot(),
		ctx:    ctx,
		cancel: cancel,
	}

	s.wg.Add(1)
	go s.connectLoop()

	slog.Info("subscriber dialing", "addr", addr)
	return s, nil
}

func (s *Subscriber) connectLoop() {
	defer s.wg.Done()

	var dialer net.Dialer
	for {
		if s.ctx.Err() != nil {
			return
		}

		conn, err := dialer.DialContext(s.ctx, "tcp", s.addr)
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(reconnectInterval):
				continue
			}
		}

		s.mu.Lock()
		if s.ctx.Err() != nil {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()

		s.connected.Store(true)
		slog.Info("connected to publisher", "addr", s.addr)

		s.readAll(conn)

		s.connected.Store(false)
		if s.ctx.Err() == nil {
			slog.Warn("publisher connection lost, reconnecting", "addr", s.addr)
		}
	}
}

// readAll drains the connection into the conflating slot until it fails.
func (s *Subscriber) readAll(conn net.Conn) {
	for {
		env, err := readMessage(conn)
		if err != nil {
			conn.Close()
			return
		}
		s.received.Add(1)
		if s.slot.put(env) {
			s.conflated.Add(1)
		}
	}
}

// Receive returns the most recently published undelivered message, waiting
// up to timeout for one to arrive. Messages that accumulated since the last
// call have already been conflated away; only the newest is ever delivered.
// Returns ErrTimeout when nothing arrives in time and ErrClosed after Close.
func (s *Subscriber) Receive(timeout time.Duration) (*codec.Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case env := <-s.slot.ch:
		return env, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-s.ctx.Done():
		return nil, ErrClosed
	}
}

// Stats returns a snapshot of receive counters.
func (s *Subscriber) Stats() SubscriberStats {
	return SubscriberStats{
		Received:  s.received.Load(),
		Conflated: s.conflated.Load(),
		Connected: s.connected.Load(),
	}
}

// Close tears down the connection exactly once. Safe to call repeatedly.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
		slog.Info("subscriber closed", "addr", s.addr)
	})
	return nil
}
