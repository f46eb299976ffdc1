package models

import "time"

// CacheStats reports secret cache behaviour. The cached value itself is never
// part of it.
type CacheStats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Refreshes int64     `json:"refreshes"`
	Failures  int64     `json:"failures"`
	Fresh     bool      `json:"fresh"`
	FetchedAt time.Time `json:"fetchedAt,omitzero"`
}
