package model

import (
	"errors"
	"fmt"
)

// ObservationStyle selects how disloc builds its observation points
type ObservationStyle int

const (
	ScatterObservation ObservationStyle = 0
	GridObservation    ObservationStyle = 1
)

// Grid describes generated observation points, in km from the origin
type Grid struct {
	MinX        float64 `json:"min_x" yaml:"min_x"`
	XSpacing    float64 `json:"x_spacing" yaml:"x_spacing"`
	XIterations int     `json:"x_iterations" yaml:"x_iterations"`
	MinY        float64 `json:"min_y" yaml:"min_y"`
	YSpacing    float64 `json:"y_spacing" yaml:"y_spacing"`
	YIterations int     `json:"y_iterations" yaml:"y_iterations"`
}

// Point is one scatter observation point, in km from the origin
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DislocParams holds the observation setup of a disloc run
type DislocParams struct {
	OriginLat float64          `json:"origin_lat" yaml:"origin_lat"`
	OriginLon float64          `json:"origin_lon" yaml:"origin_lon"`
	Style     ObservationStyle `json:"observation_style" yaml:"observation_style"`
	Grid      Grid             `json:"grid" yaml:"grid"`
	Points    []Point          `json:"points,omitempty" yaml:"points,omitempty"`
}

// NewGridParams returns validated grid-style parameters
func NewGridParams(originLat, originLon float64, grid Grid) (DislocParams, error) {
	p := DislocParams{
		OriginLat: originLat,
		OriginLon: originLon,
		Style:     GridObservation,
		Grid:      grid,
	}
	if err := p.Validate(); err != nil {
		return DislocParams{}, err
	}
	return p, nil
}

// Validate checks the observation setup
func (p DislocParams) Validate() error {
	if p.OriginLat < -90 || p.OriginLat > 90 {
		return fmt.Errorf("%w: origin latitude %v out of range", ErrInvalidFaultModel, p.OriginLat)
	}
	if p.OriginLon < -180 || p.OriginLon > 360 {
		return fmt.Errorf("%w: origin longitude %v out of range", ErrInvalidFaultModel, p.OriginLon)
	}

	switch p.Style {
	case GridObservation:
		if p.Grid.XIterations < 1 || p.Grid.YIterations < 1 {
			return fmt.Errorf("%w: grid iterations must be at least 1", ErrInvalidFaultModel)
		}
	case ScatterObservation:
		if len(p.Points) == 0 {
			return fmt.Errorf("%w: scatter style needs at least one point", ErrInvalidFaultModel)
		}
	default:
		return fmt.Errorf("%w: unknown observation style %d", ErrInvalidFaultModel, p.Style)
	}
	return nil
}

// Fault is one rectangular dislocation source.
// Location is in km from the origin, angles in degrees.
type Fault struct {
	Name        string  `json:"name,omitempty" yaml:"name,omitempty"`
	LocationX   float64 `json:"x" yaml:"x"`
	LocationY   float64 `json:"y" yaml:"y"`
	StrikeAngle float64 `json:"strike" yaml:"strike"`
	Depth       float64 `json:"depth" yaml:"depth"`
	DipAngle    float64 `json:"dip" yaml:"dip"`
	LameLambda  float64 `json:"lambda" yaml:"lambda"`
	LameMu      float64 `json:"mu" yaml:"mu"`
	StrikeSlip  float64 `json:"strike_slip" yaml:"strike_slip"`
	DipSlip     float64 `json:"dip_slip" yaml:"dip_slip"`
	TensileSlip float64 `json:"tensile_slip" yaml:"tensile_slip"`
	Length      float64 `json:"length" yaml:"length"`
	Width       float64 `json:"width" yaml:"width"`
}

// Validate checks the physical constraints disloc relies on
func (f Fault) Validate() error {
	if f.LameLambda+f.LameMu == 0 {
		return errors.New("lambda + mu must not be zero")
	}
	if f.Depth < 0 {
		return fmt.Errorf("depth must not be negative, got %v", f.Depth)
	}
	if f.DipAngle < 0 || f.DipAngle > 90 {
		return fmt.Errorf("dip %v out of range [0, 90]", f.DipAngle)
	}
	if f.Length < 0 || f.Width < 0 {
		return errors.New("length and width must not be negative")
	}
	return nil
}

// FaultModel is a complete disloc input: observation setup plus sources
type FaultModel struct {
	Params DislocParams `json:"params" yaml:"params"`
	Faults []Fault      `json:"faults" yaml:"faults"`
}

// Validate checks the params and every fault
func (m FaultModel) Validate() error {
	if err := m.Params.Validate(); err != nil {
		return err
	}
	if len(m.Faults) == 0 {
		return fmt.Errorf("%w: at least one fault is required", ErrInvalidFaultModel)
	}
	for i, f := range m.Faults {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%w: fault %d: %v", ErrInvalidFaultModel, i, err)
		}
	}
	return nil
}
