package domain

import "time"

// BuildInfo is the record kept for a target after its action succeeded.
type BuildInfo struct {
	Target      string    `json:"target,omitzero"`
	ContentHash string    `json:"content_hash,omitzero"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
}
