package transport

import "github.com/visiona/framecast/internal/codec"

// latestSlot is a one-deep conflating mailbox: putting into a full slot
// evicts the pending message in favor of the newer one. With a single writer
// the slot preserves publish order, so what the reader takes is never older
// than anything it took before.
type latestSlot struct {
	ch chan *codec.Envelope
}

func newLatestSlot() *latestSlot {
	return &latestSlot{ch: make(chan *codec.Envelope, 1)}
}

// put stores env as the pending message, evicting any undelivered one.
// Never blocks. Reports whether an older message was evicted.
func (s *latestSlot) put(env *codec.Envelope) (evicted bool) {
	for {
		select {
		case s.ch <- env:
			return evicted
		default:
		}
		select {
		case <-s.ch:
			evicted = true
		default:
		}
	}
}
