package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeightedRecord is one candidate solution tagged with a preference weight
type WeightedRecord struct {
	Weight  float64
	Payload map[string]interface{}
}

// Moment-tensor product fields read from a candidate's properties
const (
	FieldNP1Dip        = "nodal-plane-1-dip"
	FieldNP1Rake       = "nodal-plane-1-rake"
	FieldNP1Strike     = "nodal-plane-1-strike"
	FieldNP2Dip        = "nodal-plane-2-dip"
	FieldNP2Rake       = "nodal-plane-2-rake"
	FieldNP2Strike     = "nodal-plane-2-strike"
	FieldMagnitudeType = "derived-magnitude-type"
)

// NodalPlane is one of the two fault-plane solutions of a moment tensor
type NodalPlane struct {
	Strike float64 `json:"strike" bson:"strike"`
	Dip    float64 `json:"dip" bson:"dip"`
	Rake   float64 `json:"rake" bson:"rake"`
}

// MomentTensor is the canonical solution selected for an event
type MomentTensor struct {
	NodalPlane1   NodalPlane `json:"nodal_plane_1" bson:"nodal_plane_1"`
	NodalPlane2   NodalPlane `json:"nodal_plane_2" bson:"nodal_plane_2"`
	MagnitudeType string     `json:"magnitude_type" bson:"magnitude_type"`
	Weight        float64    `json:"preferred_weight" bson:"preferred_weight"`
}

// Event is one earthquake from the remote feed
type Event struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	EventID      string             `json:"event_id" bson:"event_id"`
	Title        string             `json:"title" bson:"title"`
	Place        string             `json:"place" bson:"place"`
	Magnitude    float64            `json:"mag" bson:"mag"`
	Time         time.Time          `json:"time" bson:"time"`
	Updated      time.Time          `json:"updated" bson:"updated"`
	Code         string             `json:"code" bson:"code"`
	IDs          string             `json:"ids" bson:"ids"`
	URL          string             `json:"url" bson:"url"`
	DetailURL    string             `json:"detail,omitempty" bson:"detail,omitempty"`
	Longitude    float64            `json:"longitude" bson:"longitude"`
	Latitude     float64            `json:"latitude" bson:"latitude"`
	DepthKm      float64            `json:"depth_km" bson:"depth_km"`
	MomentTensor *MomentTensor      `json:"moment_tensor,omitempty" bson:"moment_tensor,omitempty"`
	IngestedAt   time.Time          `json:"ingested_at" bson:"ingested_at"`
	JobID        string             `json:"job_id,omitempty" bson:"job_id,omitempty"`
}

// EventSummary is one entry of a summary feed
type EventSummary struct {
	EventID   string
	Magnitude float64
	Place     string
	Time      time.Time
	Updated   time.Time
	URL       string
	DetailURL string
	Longitude float64
	Latitude  float64
	DepthKm   float64
}
