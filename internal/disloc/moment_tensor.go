package disloc

import (
	"fmt"
	"math"

	"github.com/dandantas/disloc/internal/model"
)

const (
	gridPoints       = 21
	minHalfExtentKm  = 100.0
	extentPerLength  = 4.0
	lamePoisson      = 1.0
	slipMetresToUnit = 100.0 // disloc slip in cm
)

// FromMomentTensor derives a single finite-fault model for an event from
// nodal plane 1 of its preferred moment tensor. Fault length, width and
// average slip follow the Wells & Coppersmith (1994) all-slip-type
// magnitude relations; the fault's lower edge is placed so that its centre
// sits at the hypocentre depth.
func FromMomentTensor(ev model.Event, mt model.MomentTensor) (model.FaultModel, error) {
	if ev.Magnitude <= 0 {
		return model.FaultModel{}, fmt.Errorf("%w: event %s has no magnitude", model.ErrInvalidFaultModel, ev.EventID)
	}

	length, width, slip := ScalingRelations(ev.Magnitude)

	plane := mt.NodalPlane1
	dipRad := plane.Dip * math.Pi / 180
	rakeRad := plane.Rake * math.Pi / 180

	verticalExtent := width * math.Sin(dipRad)
	bottom := ev.DepthKm + verticalExtent/2
	if bottom < verticalExtent {
		bottom = verticalExtent
	}

	half := math.Max(minHalfExtentKm, extentPerLength*length)
	half = math.Ceil(half/10) * 10
	spacing := 2 * half / (gridPoints - 1)

	params, err := model.NewGridParams(ev.Latitude, ev.Longitude, model.Grid{
		MinX:        -half,
		XSpacing:    spacing,
		XIterations: gridPoints,
		MinY:        -half,
		YSpacing:    spacing,
		YIterations: gridPoints,
	})
	if err != nil {
		return model.FaultModel{}, err
	}

	fault := model.Fault{
		Name:        ev.EventID,
		StrikeAngle: plane.Strike,
		Depth:       round6(bottom),
		DipAngle:    plane.Dip,
		LameLambda:  lamePoisson,
		LameMu:      lamePoisson,
		StrikeSlip:  round6(slip * math.Cos(rakeRad)),
		DipSlip:     round6(slip * math.Sin(rakeRad)),
		Length:      round6(length),
		Width:       round6(width),
	}

	m := model.FaultModel{Params: params, Faults: []model.Fault{fault}}
	if err := m.Validate(); err != nil {
		return model.FaultModel{}, err
	}
	return m, nil
}

// ScalingRelations returns rupture length (km), width (km) and average
// slip (cm) for a moment magnitude
func ScalingRelations(mw float64) (length, width, slip float64) {
	length = math.Pow(10, -2.44+0.59*mw)
	width = math.Pow(10, -1.01+0.32*mw)
	slip = math.Pow(10, -4.80+0.69*mw) * slipMetresToUnit
	return length, width, slip
}

func round6(v float64) float64 {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		return 0
	}
	return r
}
