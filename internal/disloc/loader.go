package disloc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dandantas/disloc/internal/model"
)

// IsModelFile reports whether path names a structured fault model rather
// than a raw disloc input file
func IsModelFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadModel reads a fault model file (YAML or JSON by extension)
func LoadModel(path string) (model.FaultModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FaultModel{}, fmt.Errorf("read fault model: %w", err)
	}
	return ParseModel(data, filepath.Ext(path))
}

// ParseModel decodes and validates a fault model. A model without scatter
// points uses the grid observation style.
func ParseModel(data []byte, ext string) (model.FaultModel, error) {
	var m model.FaultModel

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return model.FaultModel{}, fmt.Errorf("%w: parse json: %v", model.ErrInvalidFaultModel, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return model.FaultModel{}, fmt.Errorf("%w: parse yaml: %v", model.ErrInvalidFaultModel, err)
		}
	default:
		return model.FaultModel{}, fmt.Errorf("%w: unsupported model format %q", model.ErrInvalidFaultModel, ext)
	}

	if m.Params.Style == model.ScatterObservation && len(m.Params.Points) == 0 {
		m.Params.Style = model.GridObservation
	}

	if err := m.Validate(); err != nil {
		return model.FaultModel{}, err
	}
	return m, nil
}
