// Package memory provides a simulated tag for tests and the demo terminal.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tag-wallet/internal/core/domain"
)

// Tag is an in-memory tag with injectable faults. The zero value is a blank
// tag of unlimited capacity.
type Tag struct {
	mu       sync.Mutex
	data     []byte
	capacity int
	latency  time.Duration

	removeRead  bool
	removeWrite bool
	committed   int // bytes of the failing write that still land; <0 = all

	reads  int
	writes int
}

// New returns a tag holding a copy of initial. capacity 0 means unlimited.
func New(initial []byte, capacity int) *Tag {
	return &Tag{data: append([]byte(nil), initial...), capacity: capacity}
}

// Bytes returns a copy of the stored bytes.
func (t *Tag) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.data...)
}

// Load replaces the stored bytes, as if another reader had written the tag.
func (t *Tag) Load(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = append([]byte(nil), b...)
}

// SetLatency delays every read and write by d. The delay honors the
// context, so a short deadline turns it into a timeout.
func (t *Tag) SetLatency(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latency = d
}

// RemoveOnNextRead makes the next read fail as if the tag left the field.
func (t *Tag) RemoveOnNextRead() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeRead = true
}

// RemoveOnNextWrite makes the next write fail with domain.ErrTagRemoved.
// The first committed bytes of that write still reach the tag; a negative
// value lands the whole write before the failure is reported.
func (t *Tag) RemoveOnNextWrite(committed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeWrite = true
	t.committed = committed
}

// Reads returns the number of read attempts.
func (t *Tag) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

// Writes returns the number of write attempts.
func (t *Tag) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

// ReadBytes implements ports.TagDevice.
func (t *Tag) ReadBytes(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	t.reads++
	latency := t.latency
	remove := t.removeRead
	t.removeRead = false
	t.mu.Unlock()

	if err := wait(ctx, latency); err != nil {
		return nil, err
	}
	if remove {
		return nil, domain.ErrTagRemoved
	}
	return t.Bytes(), nil
}

// WriteBytes implements ports.TagDevice.
func (t *Tag) WriteBytes(ctx context.Context, data []byte) error {
	t.mu.Lock()
	t.writes++
	latency := t.latency
	t.mu.Unlock()

	if err := wait(ctx, latency); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.capacity > 0 && len(data) > t.capacity {
		return fmt.Errorf("%w: %d bytes exceeds %d byte tag", domain.ErrHardwareIO, len(data), t.capacity)
	}
	if t.removeWrite {
		t.removeWrite = false
		switch {
		case t.committed < 0:
			t.data = append([]byte(nil), data...)
		case t.committed > 0:
			n := min(t.committed, len(data))
			torn := append([]byte(nil), t.data...)
			if len(torn) < n {
				torn = append(torn, make([]byte, n-len(torn))...)
			}
			copy(torn, data[:n])
			t.data = torn
		}
		return domain.ErrTagRemoved
	}
	t.data = append([]byte(nil), data...)
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return classify(ctx.Err())
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return classify(ctx.Err())
	}
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrTagTimeout
	default:
		return domain.ErrTagRemoved
	}
}
