package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/woozymasta/cngmap/internal/stations"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type fakeLoader struct {
	calls atomic.Int32
	err   error
}

func (f *fakeLoader) Load(_ context.Context, source string) (*stations.Collection, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return sampleCollection(), nil
}

func newTestStore(l Loader, ttl time.Duration, limit int) (*Store, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(l, Options{Source: "test", Defaults: defaults, TTL: ttl, Max: limit})
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStoreCreateGet(t *testing.T) {
	l := &fakeLoader{}
	s, _ := newTestStore(l, time.Minute, 10)

	a, err := s.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := s.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if a.ID == b.ID {
		t.Error("sessions share an id")
	}
	if l.calls.Load() != 2 {
		t.Errorf("loader calls = %d, want one per session", l.calls.Load())
	}

	got, err := s.Get(a.ID)
	if err != nil || got != a {
		t.Errorf("Get = %v, %v", got, err)
	}

	// Sessions are independent.
	a.Select(stations.State, "Kano")
	if b.View().Selection.Get(stations.State) != "" {
		t.Error("selection leaked across sessions")
	}
}

func TestStoreLoadFailure(t *testing.T) {
	cause := errors.New("unreachable")
	s, _ := newTestStore(&fakeLoader{err: cause}, time.Minute, 10)

	_, err := s.Create(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if s.Len() != 0 {
		t.Errorf("failed load kept a session")
	}
}

func TestStoreExpiry(t *testing.T) {
	s, now := newTestStore(&fakeLoader{}, time.Minute, 10)

	sess, err := s.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	*now = now.Add(30 * time.Second)
	if _, err := s.Get(sess.ID); err != nil {
		t.Fatalf("Get before ttl: %v", err)
	}

	*now = now.Add(61 * time.Second)
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after ttl: err = %v, want ErrNotFound", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestStoreSweep(t *testing.T) {
	s, now := newTestStore(&fakeLoader{}, time.Minute, 10)
	for i := 0; i < 3; i++ {
		if _, err := s.Create(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	*now = now.Add(2 * time.Minute)
	if n := s.Sweep(); n != 3 {
		t.Errorf("Sweep = %d, want 3", n)
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	s, now := newTestStore(&fakeLoader{}, time.Hour, 2)

	first, _ := s.Create(context.Background())
	*now = now.Add(time.Second)
	second, _ := s.Create(context.Background())
	*now = now.Add(time.Second)
	third, _ := s.Create(context.Background())

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if _, err := s.Get(first.ID); !errors.Is(err, ErrNotFound) {
		t.Error("oldest session not evicted")
	}
	for _, sess := range []*Session{second, third} {
		if _, err := s.Get(sess.ID); err != nil {
			t.Errorf("session %s evicted", sess.ID)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	s, _ := newTestStore(&fakeLoader{}, time.Minute, 10)
	sess, _ := s.Create(context.Background())
	s.Delete(sess.ID)

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted session still present")
	}
}

func TestStoreCreateLogsSource(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	level := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(level)
	})

	s, _ := newTestStore(&fakeLoader{}, time.Minute, 10)
	if _, err := s.Create(context.Background()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !strings.Contains(buf.String(), `"source":"test"`) {
		t.Errorf("log = %s, want dataset source", buf.String())
	}
}
