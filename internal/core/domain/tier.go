package domain

// Tier is the residency level of a cached artifact.
type Tier uint8

const (
	// TierStaged is host-resident and idle.
	TierStaged Tier = iota
	// TierActive is promoted for use, e.g. accelerator-resident.
	TierActive
)

// String returns the lowercase tier name.
func (t Tier) String() string {
	switch t {
	case TierStaged:
		return "staged"
	case TierActive:
		return "active"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// EntryInfo is a point-in-time view of one cache entry.
// LastAccess is a per-cache access sequence number; a larger value was touched later.
type EntryInfo struct {
	Key        CanonicalKey `json:"key"`
	Tier       Tier         `json:"tier"`
	Size       int64        `json:"size"`
	Refs       int          `json:"refs"`
	LastAccess int64        `json:"last_access"`
	Digest     uint64       `json:"digest"`
}

// CacheStats summarizes the cache.
type CacheStats struct {
	Budget        int64  `json:"budget"`
	ResidentBytes int64  `json:"resident_bytes"`
	ActiveBytes   int64  `json:"active_bytes"`
	Entries       int    `json:"entries"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Evictions     uint64 `json:"evictions"`
	LoadFailures  uint64 `json:"load_failures"`
}
