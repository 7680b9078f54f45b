package domain

import "errors"

var (
	// ErrUnknownSymbol rejects symbols missing from the registry, before any I/O.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrSourceUnavailable marks a single feed that timed out or answered non-2xx.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNoSourcesAvailable means every feed failed for a live snapshot.
	ErrNoSourcesAvailable = errors.New("no market sources available")

	// ErrHistoryNotFound means the symbol has never been backfilled. Distinct
	// from an empty series.
	ErrHistoryNotFound = errors.New("history not found, run backfill first")

	// ErrVersionConflict rejects a stale writer whose meta version no longer
	// matches the stored record.
	ErrVersionConflict = errors.New("history version conflict")

	// ErrUnknownRange rejects a range token outside the supported set.
	ErrUnknownRange = errors.New("unknown range token")
)
