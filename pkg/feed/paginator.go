package feed

import (
	"context"
	"sync"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/history"
)

// State is the paginator lifecycle.
type State int

const (
	StateReady State = iota
	StateLoading
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateLoading:
		return "loading"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Paginator serves a filtered record list in fixed-size batches, resolving
// each item's visit count against the history source at serve time.
// Batches are served in strictly increasing offset order; a NextBatch call
// that lands while another is in flight is dropped, not queued.
type Paginator struct {
	source    history.Source
	records   []history.VisitRecord
	batchSize int

	mu     sync.Mutex
	offset int
	state  State
}

// NewPaginator builds a paginator over an already-filtered, time-sorted
// record list. batchSize values below 1 are clamped to 1.
func NewPaginator(source history.Source, records []history.VisitRecord, batchSize int) *Paginator {
	if batchSize < 1 {
		batchSize = 1
	}
	p := &Paginator{
		source:    source,
		records:   records,
		batchSize: batchSize,
	}
	if len(records) == 0 {
		p.state = StateExhausted
	}
	return p
}

// NextBatch returns the next batch of records with per-item visit counts
// resolved. Once the list is consumed the paginator stays exhausted and
// every further call returns an empty batch without touching the source.
// A call overlapping an in-flight one returns nil with no side effects.
func (p *Paginator) NextBatch(ctx context.Context) ([]history.VisitRecord, error) {
	p.mu.Lock()
	switch p.state {
	case StateLoading:
		p.mu.Unlock()
		return nil, nil
	case StateExhausted:
		p.mu.Unlock()
		return []history.VisitRecord{}, nil
	}
	p.state = StateLoading
	start := p.offset
	end := start + p.batchSize
	if end > len(p.records) {
		end = len(p.records)
	}
	batch := make([]history.VisitRecord, end-start)
	copy(batch, p.records[start:end])
	p.mu.Unlock()

	// Visit counts are resolved here rather than at aggregation time:
	// the lookup is comparatively expensive and only items about to be
	// displayed are worth it. A failed lookup keeps the snapshot count.
	for i := range batch {
		count, err := p.source.VisitCount(ctx, batch[i].URL)
		if err != nil {
			utils.Log.Debugf("visit count lookup failed for %s: %v", batch[i].URL, err)
			continue
		}
		batch[i].VisitCount = count
	}

	p.mu.Lock()
	p.offset = end
	if len(batch) == 0 || p.offset >= len(p.records) {
		p.state = StateExhausted
	} else {
		p.state = StateReady
	}
	p.mu.Unlock()

	return batch, nil
}

// State reports the current lifecycle state.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Exhausted reports whether the underlying list is fully consumed.
func (p *Paginator) Exhausted() bool {
	return p.State() == StateExhausted
}

// Remaining returns how many records have not been served yet.
func (p *Paginator) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records) - p.offset
}
