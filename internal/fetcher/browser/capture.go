// SPDX-License-Identifier: AGPL-3.0-only
package browser

import "sync"

// Response is a network response observed on a page after its body has
// finished loading.
type Response struct {
	RequestID string
	URL       string
	Status    int64
	MimeType  string
}

// CaptureBuffer keeps matching responses in arrival order. It is filled
// from the browser's event goroutine and read once navigation settles.
// Once full, later responses are counted and dropped; the earliest ones
// are the ones that matter.
type CaptureBuffer struct {
	mu      sync.Mutex
	limit   int
	items   []Response
	dropped int
}

func NewCaptureBuffer(limit int) *CaptureBuffer {
	if limit <= 0 {
		limit = 32
	}
	return &CaptureBuffer{limit: limit}
}

func (b *CaptureBuffer) Push(r Response) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.limit {
		b.dropped++
		return false
	}
	b.items = append(b.items, r)
	return true
}

func (b *CaptureBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *CaptureBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Snapshot returns a copy of the buffered responses.
func (b *CaptureBuffer) Snapshot() []Response {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Response, len(b.items))
	copy(out, b.items)
	return out
}
