package selector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/disloc/internal/model"
)

func records(weights ...float64) []model.WeightedRecord {
	out := make([]model.WeightedRecord, len(weights))
	for i, w := range weights {
		out[i] = model.WeightedRecord{Weight: w, Payload: map[string]interface{}{"index": i}}
	}
	return out
}

func TestSelectEmpty(t *testing.T) {
	_, ok := Select(nil)
	assert.False(t, ok)

	_, ok = Select([]model.WeightedRecord{})
	assert.False(t, ok)
}

func TestSelectFirstMaximum(t *testing.T) {
	got, ok := Select(records(0.5, 0.9, 0.9, 0.3))
	require.True(t, ok)
	assert.Equal(t, 1, got.Payload["index"])
	assert.Equal(t, 1, Index(records(0.5, 0.9, 0.9, 0.3)))
}

func TestSelectIsStable(t *testing.T) {
	in := records(3, 1, 7, 7, 2)
	first, _ := Select(in)
	for i := 0; i < 10; i++ {
		again, ok := Select(in)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 2, first.Payload["index"])
}

func TestSelectSkipsNaN(t *testing.T) {
	nan := math.NaN()

	got, ok := Select(records(nan, 0.1, 0.2))
	require.True(t, ok)
	assert.Equal(t, 2, got.Payload["index"])

	_, ok = Select(records(nan))
	assert.False(t, ok)
}

func TestSelectNegativeWeights(t *testing.T) {
	got, ok := Select(records(-3, -1, -2))
	require.True(t, ok)
	assert.Equal(t, 1, got.Payload["index"])
}

func tensorPayload(magType string, np1Strike interface{}) map[string]interface{} {
	return map[string]interface{}{
		model.FieldNP1Dip:        "70",
		model.FieldNP1Rake:       "90",
		model.FieldNP1Strike:     np1Strike,
		model.FieldNP2Dip:        20.0,
		model.FieldNP2Rake:       "90",
		model.FieldNP2Strike:     "286",
		model.FieldMagnitudeType: magType,
	}
}

func TestPreferredMomentTensor(t *testing.T) {
	candidates := []model.WeightedRecord{
		{Weight: 10, Payload: tensorPayload("Mww", "100")},
		{Weight: 50, Payload: tensorPayload("Mwb", "106")},
		{Weight: 50, Payload: tensorPayload("Mwr", "110")},
	}

	mt, err := PreferredMomentTensor(candidates)
	require.NoError(t, err)
	assert.Equal(t, "mwb", mt.MagnitudeType)
	assert.Equal(t, 106.0, mt.NodalPlane1.Strike)
	assert.Equal(t, 70.0, mt.NodalPlane1.Dip)
	assert.Equal(t, 20.0, mt.NodalPlane2.Dip)
	assert.Equal(t, 286.0, mt.NodalPlane2.Strike)
	assert.Equal(t, 50.0, mt.Weight)
}

func TestPreferredMomentTensorExcludesIncomplete(t *testing.T) {
	incomplete := tensorPayload("Mww", "200")
	delete(incomplete, model.FieldNP2Rake)

	candidates := []model.WeightedRecord{
		{Weight: 99, Payload: incomplete},
		{Weight: 1, Payload: tensorPayload("Mwb", "106")},
	}

	mt, err := PreferredMomentTensor(candidates)
	require.NoError(t, err)
	assert.Equal(t, 106.0, mt.NodalPlane1.Strike)
	assert.Equal(t, 1.0, mt.Weight)
}

func TestPreferredMomentTensorNoCandidate(t *testing.T) {
	_, err := PreferredMomentTensor(nil)
	assert.ErrorIs(t, err, model.ErrNoCandidate)

	_, err = PreferredMomentTensor([]model.WeightedRecord{
		{Weight: 5, Payload: tensorPayload("", "106")},
	})
	assert.ErrorIs(t, err, model.ErrNoCandidate)
}

func TestExtractMomentTensorErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"missing field", map[string]interface{}{}},
		{"non numeric string", tensorPayload("mwb", "north")},
		{"wrong type", tensorPayload("mwb", true)},
		{"nil value", tensorPayload("mwb", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractMomentTensor(model.WeightedRecord{Weight: 1, Payload: tt.payload})
			assert.ErrorIs(t, err, model.ErrFeedFieldMissing)
		})
	}
}
