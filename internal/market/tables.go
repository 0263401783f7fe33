// Package market holds the process-wide market data tables and refreshes
// them from the scrapers.
package market

import (
	"sync/atomic"
	"time"

	"github.com/sells-group/health-advisor/internal/metrics"
	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/scrape"
)

// Snapshot is an immutable view of one table. Items must not be modified.
type Snapshot[T any] struct {
	Items     []T                `json:"items"`
	Status    model.ResultStatus `json:"status,omitempty"`
	UpdatedAt time.Time          `json:"updated_at,omitzero"`
	// LastError is the most recent refresh failure, kept even when the
	// previous items were retained.
	LastError string `json:"last_error,omitempty"`
}

// Empty reports whether the snapshot holds no items.
func (s Snapshot[T]) Empty() bool { return len(s.Items) == 0 }

// Head returns at most n items. n <= 0 returns all items.
func (s Snapshot[T]) Head(n int) []T {
	if n <= 0 || n >= len(s.Items) {
		return s.Items
	}
	return s.Items[:n]
}

// Slot holds the current snapshot of a single table. Readers always see a
// complete snapshot; writers swap it atomically.
type Slot[T any] struct {
	name        string
	keepOnError bool
	now         func() time.Time
	cur         atomic.Pointer[Snapshot[T]]
}

// NewSlot creates an empty slot. With keepOnError, a failed refresh keeps
// the previous items; otherwise it clears them.
func NewSlot[T any](name string, keepOnError bool) *Slot[T] {
	s := &Slot[T]{name: name, keepOnError: keepOnError, now: time.Now}
	s.cur.Store(&Snapshot[T]{Items: []T{}})
	return s
}

// Name returns the slot's source name.
func (s *Slot[T]) Name() string { return s.name }

// Load returns the current snapshot.
func (s *Slot[T]) Load() Snapshot[T] {
	return *s.cur.Load()
}

// Apply stores a scrape result and returns the resulting snapshot.
func (s *Slot[T]) Apply(res model.Result[T]) Snapshot[T] {
	var next Snapshot[T]
	switch {
	case res.Status != model.StatusFailed:
		items := res.Items
		if items == nil {
			items = []T{}
		}
		next = Snapshot[T]{Items: items, Status: res.Status, UpdatedAt: s.now()}
		s.cur.Store(&next)
	case s.keepOnError:
		next = s.annotate(errText(res.Err))
	default:
		next = Snapshot[T]{Items: []T{}, Status: model.StatusFailed, UpdatedAt: s.now(), LastError: errText(res.Err)}
		s.cur.Store(&next)
	}
	metrics.ScrapeItems.WithLabelValues(s.name).Set(float64(len(next.Items)))
	return next
}

// annotate records a failure on the current snapshot without replacing its
// items. It retries if another refresh swaps the snapshot concurrently.
func (s *Slot[T]) annotate(lastErr string) Snapshot[T] {
	for {
		prev := s.cur.Load()
		next := *prev
		next.LastError = lastErr
		if s.cur.CompareAndSwap(prev, &next) {
			return next
		}
	}
}

// Reset clears the slot.
func (s *Slot[T]) Reset() {
	s.cur.Store(&Snapshot[T]{Items: []T{}})
	metrics.ScrapeItems.WithLabelValues(s.name).Set(0)
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// Tables groups the independent market data slots.
type Tables struct {
	IRDAI    *Slot[model.MarketDataItem]
	Claims   *Slot[model.ClaimSettlementItem]
	Premiums *Slot[model.PremiumItem]
}

// NewTables creates empty tables.
func NewTables(keepOnError bool) *Tables {
	return &Tables{
		IRDAI:    NewSlot[model.MarketDataItem](scrape.SourceIRDAI, keepOnError),
		Claims:   NewSlot[model.ClaimSettlementItem](scrape.SourceClaims, keepOnError),
		Premiums: NewSlot[model.PremiumItem](scrape.SourcePremiums, keepOnError),
	}
}
