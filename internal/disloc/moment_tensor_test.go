package disloc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/disloc/internal/model"
)

func TestScalingRelations(t *testing.T) {
	length, width, slip := ScalingRelations(7.0)

	assert.InDelta(t, 48.98, length, 0.01)
	assert.InDelta(t, 16.98, width, 0.01)
	assert.InDelta(t, 107.15, slip, 0.01)
}

func TestFromMomentTensorThrust(t *testing.T) {
	ev := model.Event{
		EventID:   "us200041ty",
		Magnitude: 7.0,
		Latitude:  36.5,
		Longitude: 70.7,
		DepthKm:   10,
	}
	mt := model.MomentTensor{
		NodalPlane1: model.NodalPlane{Strike: 106, Dip: 70, Rake: 90},
	}

	m, err := FromMomentTensor(ev, mt)
	require.NoError(t, err)
	require.Len(t, m.Faults, 1)

	f := m.Faults[0]
	assert.Equal(t, 106.0, f.StrikeAngle)
	assert.Equal(t, 70.0, f.DipAngle)
	assert.Equal(t, 0.0, f.StrikeSlip)
	assert.InDelta(t, 107.15, f.DipSlip, 0.01)
	assert.InDelta(t, 17.98, f.Depth, 0.01)

	assert.Equal(t, 36.5, m.Params.OriginLat)
	assert.Equal(t, -200.0, m.Params.Grid.MinX)
	assert.Equal(t, 20.0, m.Params.Grid.XSpacing)
	assert.Equal(t, 21, m.Params.Grid.YIterations)

	input, err := RenderInput(m)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(input, "36.5 70.7 1\n-200.0 20.0 21 -200.0 20.0 21\n"))
}

func TestFromMomentTensorShallowEvent(t *testing.T) {
	ev := model.Event{EventID: "shallow", Magnitude: 6.0, DepthKm: 0}
	mt := model.MomentTensor{NodalPlane1: model.NodalPlane{Strike: 0, Dip: 90, Rake: 0}}

	m, err := FromMomentTensor(ev, mt)
	require.NoError(t, err)

	f := m.Faults[0]
	assert.InDelta(t, f.Width, f.Depth, 1e-6)
	assert.Greater(t, f.StrikeSlip, 0.0)
	assert.Equal(t, 0.0, f.DipSlip)
	assert.Equal(t, -100.0, m.Params.Grid.MinX)
}

func TestFromMomentTensorNoMagnitude(t *testing.T) {
	_, err := FromMomentTensor(model.Event{EventID: "x"}, model.MomentTensor{})
	assert.ErrorIs(t, err, model.ErrInvalidFaultModel)
}
