package updater

import (
	"sync"
	"time"
)

const defaultJournalWindow = time.Hour

// journal remembers which writes of a partly applied event already landed.
// A redelivered event then retries only the writes that failed. Entries are
// dropped once the event applies fully or after the window passes.
type journal struct {
	mutex  sync.Mutex
	window time.Duration
	events map[string]*journalEntry
}

type journalEntry struct {
	firstSeen time.Time
	done      map[string]bool
}

func newJournal(window time.Duration) *journal {
	if window <= 0 {
		window = defaultJournalWindow
	}
	return &journal{window: window, events: make(map[string]*journalEntry)}
}

func (j *journal) done(eventId, step string) bool {
	if eventId == "" {
		return false
	}
	j.mutex.Lock()
	defer j.mutex.Unlock()

	e, ok := j.events[eventId]
	return ok && e.done[step]
}

func (j *journal) mark(eventId, step string, now time.Time) {
	if eventId == "" {
		return
	}
	j.mutex.Lock()
	defer j.mutex.Unlock()

	e, ok := j.events[eventId]
	if !ok {
		e = &journalEntry{firstSeen: now, done: make(map[string]bool)}
		j.events[eventId] = e
	}
	e.done[step] = true
}

func (j *journal) forget(eventId string) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	delete(j.events, eventId)
}

// prune drops partial entries older than the window.
func (j *journal) prune(now time.Time) int {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	cutoff := now.Add(-j.window)
	pruned := 0
	for id, e := range j.events {
		if e.firstSeen.Before(cutoff) {
			delete(j.events, id)
			pruned++
		}
	}
	return pruned
}

func (j *journal) pending() int {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return len(j.events)
}
