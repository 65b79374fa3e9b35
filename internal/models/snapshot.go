package models

import "time"

// SnapshotMetadata describes a stored registry checkpoint.
type SnapshotMetadata struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
