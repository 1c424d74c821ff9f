package models

import "time"

// IndexingStatus is returned by a pipeline run.
type IndexingStatus struct {
	StartedAt       time.Time
	Duration        time.Duration
	ReferencesPaths []string
	VectorPaths     []string
}
