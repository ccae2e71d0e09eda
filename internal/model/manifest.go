package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SummaryFileName is the name of the persisted manifest inside a workspace
const SummaryFileName = "summary.json"

// Generic error markers surfaced to callers; captured stderr stays in the logs
const (
	ErrorMarkerDisloc      = "disloc failed"
	ErrorMarkerLineOfSight = "lineofsight failed"
)

// LatLonBox is the geographic extent associated with a rendered result
type LatLonBox struct {
	North float64 `json:"north" bson:"north"`
	South float64 `json:"south" bson:"south"`
	East  float64 `json:"east" bson:"east"`
	West  float64 `json:"west" bson:"west"`
}

// Parameters are the resolved line-of-sight options of a job
type Parameters struct {
	Elevation      float64 `json:"elevation" bson:"elevation"`
	Azimuth        float64 `json:"azimuth" bson:"azimuth"`
	RadarFrequency float64 `json:"radarfrequency" bson:"radarfrequency"` // GHz
}

// ResultManifest is the summary document written into every workspace
type ResultManifest struct {
	Status     ExecutionStatus `json:"status" bson:"status"`
	Error      string          `json:"error" bson:"error"`
	LatLonBox  *LatLonBox      `json:"latlonbox,omitempty" bson:"latlonbox,omitempty"`
	Parameters Parameters      `json:"parameters" bson:"parameters"`
	Output     []string        `json:"output" bson:"output"`
}

// Succeeded reports whether the manifest describes a successful job
func (m *ResultManifest) Succeeded() bool {
	return m.Status == StatusSuccess
}

// ManifestRecord is the archived form of a manifest, with job bookkeeping
type ManifestRecord struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	JobID         string             `json:"job_id" bson:"job_id"`
	CorrelationID string             `json:"correlation_id" bson:"correlation_id"`
	EventID       string             `json:"event_id,omitempty" bson:"event_id,omitempty"`
	Workspace     string             `json:"workspace" bson:"workspace"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	DurationMs    int64              `json:"duration_ms" bson:"duration_ms"`
	ExecutionErr  string             `json:"execution_error,omitempty" bson:"execution_error,omitempty"`
	Manifest      ResultManifest     `json:"manifest" bson:"manifest"`
}
