package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lee-jian-hui/tts-system/internal/log"
	"github.com/lee-jian-hui/tts-system/internal/session/lifecycle"
)

// ErrNotFound is returned by Get/UpdateStatus when the session id is
// unknown.
type ErrNotFound struct{ ID string }

func (e ErrNotFound) Error() string { return "session: unknown id " + e.ID }

// Store is the in-memory map of spec.md §4.3: source of truth for
// lifecycle state, with monotonic transitions enforced per session.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	retentionTTL time.Duration
	maxRecords   int

	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewStore builds an empty store. retentionTTL and maxRecords configure
// the background sweeper started by StartRetentionSweeper; pass zero
// values to disable retention bounds entirely.
func NewStore(retentionTTL time.Duration, maxRecords int) *Store {
	return &Store{
		sessions:     make(map[string]*Session),
		retentionTTL: retentionTTL,
		maxRecords:   maxRecords,
	}
}

// Insert adds a new session. The caller must set s.ID to a unique,
// unpredictable identifier before calling Insert.
func (st *Store) Insert(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

// Get returns a consistent snapshot of the session, or ErrNotFound.
func (st *Store) Get(id string) (Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrNotFound{ID: id}
	}
	return s.Clone(), nil
}

// UpdateStatus dispatches ev against the stored session's current
// status. The update is atomic w.r.t. that single session; an illegal
// transition leaves the record untouched and returns the lifecycle
// error (spec.md §4.3 invariant).
func (st *Store) UpdateStatus(id string, ev lifecycle.Event, now time.Time) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrNotFound{ID: id}
	}
	if _, err := Dispatch(s, ev, now); err != nil {
		return Session{}, err
	}
	return s.Clone(), nil
}

// Delete removes a session record immediately; normal retention is
// handled by the sweeper instead.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the current record count, for tests and the retention sweeper.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartRetentionSweeper launches the background goroutine that bounds
// memory per SPEC_FULL.md §D.3: terminal records older than
// retentionTTL are dropped, and if the store still exceeds maxRecords
// the oldest terminal records are evicted first (LRU by FinishedAt).
// Safe to call at most once; returns immediately if retentionTTL and
// maxRecords are both zero.
func (st *Store) StartRetentionSweeper(ctx context.Context, interval time.Duration) {
	if st.retentionTTL <= 0 && st.maxRecords <= 0 {
		return
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	st.wg.Add(1)
	go st.sweepLoop(sweepCtx, interval)
}

// Stop halts the retention sweeper and waits for it to exit.
func (st *Store) Stop() {
	st.stopOnce.Do(func() {
		if st.cancel != nil {
			st.cancel()
		}
		st.wg.Wait()
	})
}

func (st *Store) sweepLoop(ctx context.Context, interval time.Duration) {
	defer st.wg.Done()
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st.sweep(time.Now())
		}
	}
}

func (st *Store) sweep(now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	evicted := 0
	if st.retentionTTL > 0 {
		for id, s := range st.sessions {
			if s.Status.IsTerminal() && s.FinishedAt != nil && now.Sub(*s.FinishedAt) >= st.retentionTTL {
				delete(st.sessions, id)
				evicted++
			}
		}
	}

	if st.maxRecords > 0 && len(st.sessions) > st.maxRecords {
		type terminalEntry struct {
			id         string
			finishedAt time.Time
		}
		var terminal []terminalEntry
		for id, s := range st.sessions {
			if s.Status.IsTerminal() && s.FinishedAt != nil {
				terminal = append(terminal, terminalEntry{id: id, finishedAt: *s.FinishedAt})
			}
		}
		sort.Slice(terminal, func(i, j int) bool { return terminal[i].finishedAt.Before(terminal[j].finishedAt) })

		overflow := len(st.sessions) - st.maxRecords
		for i := 0; i < overflow && i < len(terminal); i++ {
			delete(st.sessions, terminal[i].id)
			evicted++
		}
	}

	if evicted > 0 {
		log.WithComponent("session_store").Debug().
			Int("evicted", evicted).
			Int("remaining", len(st.sessions)).
			Msg("retention sweep")
	}
}
