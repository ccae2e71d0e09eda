package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oliveagle/jsonpath"

	"github.com/dandantas/disloc/internal/model"
	"github.com/dandantas/disloc/internal/selector"
)

const momentTensorProduct = "moment-tensor"

// ParseEvent reads a GeoJSON detail document. The event's moment tensor is
// the preferred complete candidate among its moment-tensor products; an
// event without one is returned with MomentTensor nil.
func ParseEvent(body []byte) (*model.Event, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse event JSON: %w", err)
	}

	ev := &model.Event{}
	var err error

	if ev.EventID, err = lookupString(doc, "$.id"); err != nil {
		return nil, err
	}
	if ev.Magnitude, err = lookupFloat(doc, "$.properties.mag"); err != nil {
		return nil, err
	}

	// Descriptive fields are optional in the feed
	ev.Title, _ = lookupString(doc, "$.properties.title")
	ev.Place, _ = lookupString(doc, "$.properties.place")
	ev.Code, _ = lookupString(doc, "$.properties.code")
	ev.IDs, _ = lookupString(doc, "$.properties.ids")
	ev.URL, _ = lookupString(doc, "$.properties.url")
	ev.DetailURL, _ = lookupString(doc, "$.properties.detail")
	if ms, err := lookupFloat(doc, "$.properties.time"); err == nil {
		ev.Time = fromMillis(ms)
	}
	if ms, err := lookupFloat(doc, "$.properties.updated"); err == nil {
		ev.Updated = fromMillis(ms)
	}

	if ev.Longitude, ev.Latitude, ev.DepthKm, err = coordinates(doc); err != nil {
		return nil, err
	}

	candidates, err := MomentTensorCandidates(doc)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		mt, err := selector.PreferredMomentTensor(candidates)
		switch {
		case err == nil:
			ev.MomentTensor = mt
		case errors.Is(err, model.ErrNoCandidate):
			slog.Info("Event has no complete moment-tensor solution",
				"event_id", ev.EventID,
				"candidates", len(candidates),
			)
		default:
			return nil, err
		}
	}

	return ev, nil
}

// MomentTensorCandidates turns the event's moment-tensor products into
// weighted records. Products without a preferredWeight or properties are
// skipped.
func MomentTensorCandidates(doc interface{}) ([]model.WeightedRecord, error) {
	raw, err := lookup(doc, "$.properties.products")
	if err != nil {
		return nil, nil
	}
	products, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: products is %T", model.ErrFeedFieldMissing, raw)
	}

	entries, _ := products[momentTensorProduct].([]interface{})
	records := make([]model.WeightedRecord, 0, len(entries))
	for i, entry := range entries {
		product, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		weight, ok := product["preferredWeight"].(float64)
		if !ok {
			slog.Debug("Skipping moment-tensor product without preferredWeight", "index", i)
			continue
		}
		props, ok := product["properties"].(map[string]interface{})
		if !ok {
			slog.Debug("Skipping moment-tensor product without properties", "index", i)
			continue
		}
		records = append(records, model.WeightedRecord{Weight: weight, Payload: props})
	}

	return records, nil
}

// ParseSummary reads a GeoJSON summary feed and keeps features whose
// magnitude is at least minMag
func ParseSummary(body []byte, minMag float64) ([]model.EventSummary, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse summary JSON: %w", err)
	}

	raw, err := lookup(doc, "$.features")
	if err != nil {
		return nil, err
	}
	features, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: features is %T", model.ErrFeedFieldMissing, raw)
	}

	summaries := make([]model.EventSummary, 0, len(features))
	for _, feature := range features {
		mag, err := lookupFloat(feature, "$.properties.mag")
		if err != nil || mag < minMag {
			continue
		}

		s := model.EventSummary{Magnitude: mag}

		ids, _ := lookupString(feature, "$.properties.ids")
		s.EventID = eventIDFromIDs(ids)
		if s.EventID == "" {
			if s.EventID, err = lookupString(feature, "$.id"); err != nil {
				slog.Debug("Skipping feature without id", "ids", ids)
				continue
			}
		}

		s.Place, _ = lookupString(feature, "$.properties.place")
		s.URL, _ = lookupString(feature, "$.properties.url")
		s.DetailURL, _ = lookupString(feature, "$.properties.detail")
		if ms, err := lookupFloat(feature, "$.properties.time"); err == nil {
			s.Time = fromMillis(ms)
		}
		if ms, err := lookupFloat(feature, "$.properties.updated"); err == nil {
			s.Updated = fromMillis(ms)
		}
		s.Longitude, s.Latitude, s.DepthKm, _ = coordinates(feature)

		summaries = append(summaries, s)
	}

	return summaries, nil
}

// eventIDFromIDs picks the first id out of a ",ci15296281,us2013mqbd," list
func eventIDFromIDs(ids string) string {
	parts := strings.Split(ids, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func coordinates(doc interface{}) (lon, lat, depth float64, err error) {
	raw, err := lookup(doc, "$.geometry.coordinates")
	if err != nil {
		return 0, 0, 0, err
	}
	coords, ok := raw.([]interface{})
	if !ok || len(coords) < 3 {
		return 0, 0, 0, fmt.Errorf("%w: geometry.coordinates", model.ErrFeedFieldMissing)
	}

	vals := make([]float64, 3)
	for i := range vals {
		if vals[i], ok = coords[i].(float64); !ok {
			return 0, 0, 0, fmt.Errorf("%w: geometry.coordinates[%d]", model.ErrFeedFieldMissing, i)
		}
	}
	return vals[0], vals[1], vals[2], nil
}

// lookup extracts a value using a JSONPath expression
func lookup(doc interface{}, expression string) (interface{}, error) {
	pattern, err := jsonpath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression '%s': %w", expression, err)
	}

	result, err := pattern.Lookup(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrFeedFieldMissing, expression, err)
	}
	return result, nil
}

func lookupString(doc interface{}, expression string) (string, error) {
	v, err := lookup(doc, expression)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, not a string", model.ErrFeedFieldMissing, expression, v)
	}
	return s, nil
}

func lookupFloat(doc interface{}, expression string) (float64, error) {
	v, err := lookup(doc, expression)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T, not a number", model.ErrFeedFieldMissing, expression, v)
	}
	return f, nil
}

func fromMillis(ms float64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}
