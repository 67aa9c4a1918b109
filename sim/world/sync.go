package world

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventFailure is an event or delayed action that could not be applied.
type EventFailure struct {
	Event Event
	Err   error
}

// SyncReport summarizes one synchronization pass.
type SyncReport struct {
	Now      int64
	Ingested int
	Applied  int // delayed actions that came due
	Failures []EventFailure
}

// Synchronize ingests a batch of events in (SimTime, ReceivedOrder, ID)
// order, then applies every delayed action due by now. A failing event is
// reported and skipped; it never affects other entities.
func (m *Manager) Synchronize(now int64, events []Event) (SyncReport, error) {
	if now < m.now {
		return SyncReport{}, fmt.Errorf("%w: now=%d is before last sync at %d", ErrInvalidTime, now, m.now)
	}
	batch := append([]Event(nil), events...)
	SortEvents(batch)

	report := SyncReport{Now: now}
	for _, ev := range batch {
		if err := m.Ingest(ev); err != nil {
			logrus.Warnf("skipping %v: %v", ev, err)
			report.Failures = append(report.Failures, EventFailure{Event: ev, Err: err})
			continue
		}
		report.Ingested++
	}
	applied, failures := m.ProcessDue(now)
	report.Applied = applied
	report.Failures = append(report.Failures, failures...)
	m.now = now
	m.updateStats()

	logrus.Debugf("sync t=%d: %d ingested, %d applied, %d failed",
		now, report.Ingested, report.Applied, len(report.Failures))
	return report, nil
}

// ProcessDue applies and removes every delayed action due at or before now,
// in (Due, ID) order.
func (m *Manager) ProcessDue(now int64) (int, []EventFailure) {
	applied := 0
	var failures []EventFailure
	for d := m.delayed.PopDue(now); d != nil; d = m.delayed.PopDue(now) {
		ids := []string{d.Origin.Entity, d.payload().Actor}
		if err := m.isolated(ids, func() error { return m.apply(d) }); err != nil {
			logrus.Warnf("dropping delayed %v: %v", d.Origin, err)
			failures = append(failures, EventFailure{Event: d.Origin, Err: err})
			continue
		}
		applied++
	}
	return applied, failures
}

// isolated runs fn and rolls back everything it touched if it fails or
// panics. Only the entities in ids are backed up.
func (m *Manager) isolated(ids []string, fn func() error) (err error) {
	backups := make(map[string]entityBackup, len(ids))
	for _, id := range ids {
		if e, ok := m.entities[id]; ok {
			backups[id] = e.backup()
		}
	}
	queue := m.delayed.Clone()
	mark := m.log.Mark()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			for id, b := range backups {
				m.entities[id].restore(b)
			}
			m.delayed = queue
			m.log.Rewind(mark)
		}
	}()
	return fn()
}
