package candidate

import "time"

// MaxExtraFields bounds the free-form metadata map per passage.
const MaxExtraFields = 16

// Metadata is the typed per-passage metadata. Known fields drive filtering
// and the diversity penalty; anything else lands in the bounded Extra map.
type Metadata struct {
	Domain     string
	SourceType string
	Topics     []string
	ChunkIndex int
	LastUsedAt time.Time // zero value means never surfaced
	UseCount   int
	Deleted    bool
	Extra      map[string]string
}

// UsedRecently reports whether the passage was surfaced within the lookback
// window ending at now. A zero last-used timestamp means never used.
func (m Metadata) UsedRecently(now time.Time, lookback time.Duration) bool {
	if m.LastUsedAt.IsZero() {
		return false
	}
	return m.LastUsedAt.After(now.Add(-lookback))
}

// HasTopic reports whether the passage carries any of the given topics.
// An empty wanted list matches everything.
func (m Metadata) HasTopic(wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		for _, t := range m.Topics {
			if t == w {
				return true
			}
		}
	}
	return false
}
