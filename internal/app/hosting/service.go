// Package hosting keeps track of who hosted games and when.
package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"survivor/internal/domain"
	"survivor/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const DefaultFlushInterval = 60 * time.Second

var ErrAlreadyRunning = errors.New("host flush already running")

// Service holds host-activity counters in memory and writes them to the
// store periodically. It is safe for concurrent use.
type Service struct {
	store  ports.HostStore
	logger runtime.Logger

	mu       sync.Mutex
	counters ports.HostCounters
	host     string
	dirty    bool

	stop chan struct{}
	done chan struct{}
}

// NewService constructs a host service backed by store.
func NewService(store ports.HostStore, logger runtime.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		counters: make(ports.HostCounters),
	}
}

// Load replaces the in-memory state with what the store holds.
func (s *Service) Load(ctx context.Context) error {
	counters, err := s.store.LoadCounters(ctx)
	if err != nil {
		return fmt.Errorf("failed to load host counters: %w", err)
	}
	host, err := s.store.LoadHost(ctx)
	if err != nil {
		return fmt.Errorf("failed to load current host: %w", err)
	}
	if counters == nil {
		counters = make(ports.HostCounters)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = counters
	s.host = host
	s.dirty = false
	return nil
}

// AddHost records that user hosted a game at the given time.
func (s *Service) AddHost(user string, at time.Time) {
	id := domain.ToID(user)
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[id] = append(s.counters[id], at.Unix())
	s.dirty = true
}

// RemoveHost drops the latest entry for user. It reports false when there was none.
func (s *Service) RemoveHost(user string) bool {
	id := domain.ToID(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.counters[id]
	if len(entries) == 0 {
		return false
	}
	s.counters[id] = entries[:len(entries)-1]
	s.dirty = true
	return true
}

// Count returns how many times user hosted within the last days days.
func (s *Service) Count(user string, days int, now time.Time) (count int, known bool) {
	id := domain.ToID(user)
	window := int64(days) * 24 * 60 * 60

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, known := s.counters[id]
	for _, at := range entries {
		delta := now.Unix() - at
		if delta < 0 {
			delta = -delta
		}
		if delta < window {
			count++
		}
	}
	return count, known
}

// Report renders the host count of user over the last days days.
func (s *Service) Report(user string, days int, now time.Time) string {
	id := domain.ToID(user)
	count, known := s.Count(id, days, now)
	switch {
	case !known:
		return "**" + id + "** has never hosted."
	case count == 0:
		return fmt.Sprintf("**%s** has not hosted in the last %s.", id, domain.Plural(days, "day"))
	default:
		return fmt.Sprintf("**%s** has hosted %s in the last %s.", id, domain.Plural(count, "time"), domain.Plural(days, "day"))
	}
}

// SetHost records the current host; "" clears it.
func (s *Service) SetHost(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = domain.ToID(user)
	s.dirty = true
}

func (s *Service) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

// Flush writes the counters and the host pointer if anything changed since
// the last successful flush.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := make(ports.HostCounters, len(s.counters))
	for id, entries := range s.counters {
		snapshot[id] = append([]int64(nil), entries...)
	}
	host := s.host
	s.dirty = false
	s.mu.Unlock()

	if err := s.store.SaveCounters(ctx, snapshot); err != nil {
		s.markDirty()
		return fmt.Errorf("failed to save host counters: %w", err)
	}
	if err := s.store.SaveHost(ctx, host); err != nil {
		s.markDirty()
		return fmt.Errorf("failed to save current host: %w", err)
	}
	return nil
}

func (s *Service) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Start flushes every interval on a background goroutine until Stop.
func (s *Service) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := s.Flush(ctx); err != nil && s.logger != nil {
					s.logger.Warn("Host counter flush failed: %v", err)
				}
			}
		}
	}()
	return nil
}

// Stop ends the background flush and writes any pending changes.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return s.Flush(ctx)
}
