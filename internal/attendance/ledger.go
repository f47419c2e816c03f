package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

// Sink receives one row per recorded presence.
type Sink interface {
	Append(ctx context.Context, event models.PresenceEvent) error
}

// Ledger tracks who is present in one session. The present set only grows.
// Every call to RecordPresence appends a sink row, re-scans included, unless
// duplicate suppression is on. The mutex covers both the set and the sink
// append so concurrent scanners neither lose updates nor interleave rows.
type Ledger struct {
	mu                 sync.Mutex
	sessionID          string
	sink               Sink
	suppressDuplicates bool
	present            NameSet
	order              []string
	scans              int
}

// NewLedger returns an empty ledger. sink may be nil.
func NewLedger(sessionID string, sink Sink, suppressDuplicateRows bool) *Ledger {
	return &Ledger{
		sessionID:          sessionID,
		sink:               sink,
		suppressDuplicates: suppressDuplicateRows,
		present:            NameSet{},
	}
}

// RecordPresence marks the identity present and appends the sink row. The name
// stays in the present set even when the append fails.
func (l *Ledger) RecordPresence(ctx context.Context, identity models.Identity, ts time.Time) (models.PresenceEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	duplicate := l.present.Has(identity.Name)
	if !duplicate {
		l.present[identity.Name] = struct{}{}
		l.order = append(l.order, identity.Name)
	}
	l.scans++

	event := models.PresenceEvent{
		SessionID:  l.sessionID,
		Timestamp:  ts,
		Name:       identity.Name,
		Grade:      identity.Grade,
		Track:      identity.Track,
		RollNumber: identity.RollNumber,
		Duplicate:  duplicate,
	}
	if l.sink == nil || (duplicate && l.suppressDuplicates) {
		return event, nil
	}
	if err := l.sink.Append(ctx, event); err != nil {
		return event, appErrors.WrapAs(appErrors.ErrSinkWrite, err, "")
	}
	return event, nil
}

// PresentNames returns a copy of the present set.
func (l *Ledger) PresentNames() NameSet {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(NameSet, len(l.present))
	for name := range l.present {
		out[name] = struct{}{}
	}
	return out
}

// Arrivals lists present names in first-scan order.
func (l *Ledger) Arrivals() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// Scans counts accepted scans, re-scans included.
func (l *Ledger) Scans() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scans
}
