package attendance

import (
	"github.com/noah-isme/sma-qr-attendance/internal/models"
)

// RosterView is what reconciliation needs from a roster.
type RosterView interface {
	Names() []string
	Lookup(name string) (models.StudentRecord, bool)
}

// Reconcile computes roster minus present. It performs no I/O and never fails;
// the caller stamps session id and generation time.
func Reconcile(roster RosterView, present NameSet) models.AbsenceReport {
	names := roster.Names()
	absent := make([]models.StudentRecord, 0, len(names))
	for _, name := range names {
		if present.Has(name) {
			continue
		}
		rec, ok := roster.Lookup(name)
		if !ok {
			rec = models.StudentRecord{}
		}
		rec.Name = name
		absent = append(absent, rec)
	}
	return models.AbsenceReport{
		RosterSize:   len(names),
		PresentCount: len(present),
		Absent:       absent,
	}
}

// PresentFromRows rebuilds a present set from attendance sink rows (header
// first, name in the second column), for offline reconciliation.
func PresentFromRows(rows [][]string) NameSet {
	set := NameSet{}
	if len(rows) == 0 {
		return set
	}
	for _, row := range rows[1:] {
		name := NormalizeName(cell(row, 1))
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// PresentFromEvents rebuilds a present set from stored presence events.
func PresentFromEvents(events []models.PresenceEvent) NameSet {
	set := NameSet{}
	for _, ev := range events {
		if name := NormalizeName(ev.Name); name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}
