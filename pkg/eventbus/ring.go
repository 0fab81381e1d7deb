package eventbus

import (
	"sync"

	"github.com/kodexlab/kodex/pkg/domain"
)

// ring is a fixed-capacity buffer of the most recent events.
type ring struct {
	mu    sync.Mutex
	buf   []domain.Event
	next  int
	total int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.Event, capacity)}
}

func (r *ring) append(evt domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = evt
	r.next = (r.next + 1) % len(r.buf)
	r.total++
}

// last returns up to n of the most recent events, oldest first.
func (r *ring) last(n int) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.total
	if size > len(r.buf) {
		size = len(r.buf)
	}
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil
	}

	out := make([]domain.Event, 0, n)
	start := r.next - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
