package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/cngmap/internal/geo"
	"github.com/woozymasta/cngmap/internal/stations"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Loader loads the station dataset for a new session.
type Loader interface {
	Load(ctx context.Context, source string) (*stations.Collection, error)
}

// Options configure a Store.
type Options struct {
	Source   string
	Defaults geo.View
	TTL      time.Duration
	Max      int
}

// Store holds live sessions. Each new session loads its own dataset snapshot.
type Store struct {
	loader Loader
	opts   Options
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore(loader Loader, opts Options) *Store {
	return &Store{
		loader:   loader,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create loads the dataset and registers a new session. A load failure is
// returned to the caller and no session is kept.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	data, err := s.loader.Load(ctx, s.opts.Source)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}

	sess := New(uuid.NewString(), data, s.opts.Defaults)
	sess.lastSeen = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if s.opts.Max > 0 && len(s.sessions) >= s.opts.Max {
		s.evictOldestLocked()
	}
	s.sessions[sess.ID] = sess

	log.Debug().
		Str("session", sess.ID).
		Str("source", data.Source()).
		Int("stations", data.Len()).
		Int("sessions", len(s.sessions)).
		Msg("Session created")

	return sess, nil
}

// Get returns a live session and marks it as used.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && s.expired(sess) {
		delete(s.sessions, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(s.now())

	return sess, nil
}

// Delete drops a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked()
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("expired", n).Msg("Sessions swept")
			}
		}
	}
}

func (s *Store) expired(sess *Session) bool {
	return s.opts.TTL > 0 && s.now().Sub(sess.idleSince()) > s.opts.TTL
}

func (s *Store) sweepLocked() int {
	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			n++
		}
	}

	return n
}

func (s *Store) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if t := sess.idleSince(); oldestID == "" || t.Before(oldest) {
			oldestID, oldest = id, t
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}
