package ports

import "context"

// HostCounters maps a normalized user identity to the UNIX timestamps
// (seconds, ascending) of every game that user hosted.
type HostCounters map[string][]int64

// HostStore persists host-activity statistics.
type HostStore interface {
	// LoadCounters returns the stored counters; an empty store yields an empty map.
	LoadCounters(ctx context.Context) (HostCounters, error)

	// SaveCounters replaces the stored counters.
	SaveCounters(ctx context.Context, counters HostCounters) error

	// LoadHost returns the current host identity, or "" when none is set.
	LoadHost(ctx context.Context) (string, error)

	// SaveHost stores the current host identity; "" clears it.
	SaveHost(ctx context.Context, userID string) error
}
