// Package selector picks the preferred solution out of weighted candidates.
package selector

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/dandantas/disloc/internal/model"
)

// Select returns the record with the highest weight. Ties resolve to the
// first such record in input order; NaN weights never win. The second
// return value is false when no record qualifies.
func Select(records []model.WeightedRecord) (model.WeightedRecord, bool) {
	i := Index(records)
	if i < 0 {
		return model.WeightedRecord{}, false
	}
	return records[i], true
}

// Index is Select returning the position of the preferred record, or -1
func Index(records []model.WeightedRecord) int {
	best := -1
	for i, r := range records {
		if math.IsNaN(r.Weight) {
			continue
		}
		if best < 0 || r.Weight > records[best].Weight {
			best = i
		}
	}
	return best
}

// PreferredMomentTensor selects the canonical moment-tensor solution.
// Candidates lacking any required field are dropped before selection.
func PreferredMomentTensor(candidates []model.WeightedRecord) (*model.MomentTensor, error) {
	complete := make([]model.WeightedRecord, 0, len(candidates))
	tensors := make([]model.MomentTensor, 0, len(candidates))

	for i, c := range candidates {
		mt, err := ExtractMomentTensor(c)
		if err != nil {
			slog.Debug("Excluding moment-tensor candidate",
				"index", i,
				"error", err,
			)
			continue
		}
		complete = append(complete, c)
		tensors = append(tensors, mt)
	}

	i := Index(complete)
	if i < 0 {
		return nil, fmt.Errorf("%w: %d moment-tensor candidates, none complete", model.ErrNoCandidate, len(candidates))
	}
	return &tensors[i], nil
}

// ExtractMomentTensor reads the named nodal-plane fields out of a candidate
func ExtractMomentTensor(record model.WeightedRecord) (model.MomentTensor, error) {
	var mt model.MomentTensor
	var err error

	fields := []struct {
		name string
		dst  *float64
	}{
		{model.FieldNP1Dip, &mt.NodalPlane1.Dip},
		{model.FieldNP1Rake, &mt.NodalPlane1.Rake},
		{model.FieldNP1Strike, &mt.NodalPlane1.Strike},
		{model.FieldNP2Dip, &mt.NodalPlane2.Dip},
		{model.FieldNP2Rake, &mt.NodalPlane2.Rake},
		{model.FieldNP2Strike, &mt.NodalPlane2.Strike},
	}
	for _, f := range fields {
		if *f.dst, err = numberField(record.Payload, f.name); err != nil {
			return model.MomentTensor{}, err
		}
	}

	magType, ok := record.Payload[model.FieldMagnitudeType].(string)
	if !ok || magType == "" {
		return model.MomentTensor{}, fmt.Errorf("%w: %s", model.ErrFeedFieldMissing, model.FieldMagnitudeType)
	}
	mt.MagnitudeType = strings.ToLower(magType)
	mt.Weight = record.Weight

	return mt, nil
}

// numberField accepts JSON numbers and the numeric strings USGS publishes
func numberField(payload map[string]interface{}, name string) (float64, error) {
	raw, ok := payload[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s", model.ErrFeedFieldMissing, name)
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", model.ErrFeedFieldMissing, name, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not numeric: %q", model.ErrFeedFieldMissing, name, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", model.ErrFeedFieldMissing, name, raw)
	}
}
