package model

import (
	"strings"
	"time"
)

// Request option names as accepted by the service front end
const (
	OptionInput          = "input"
	OptionInputFile      = "inputfile"
	OptionInputURL       = "inputurl"
	OptionOutput         = "output"
	OptionElevation      = "elevation"
	OptionAzimuth        = "azimuth"
	OptionRadarFrequency = "radarfrequency"
	OptionWorkDir        = "workdir"
	OptionAPI            = "api"
)

// DefaultOutputPrefix names the disloc output when the caller gives none
const DefaultOutputPrefix = "output"

// Request is a typed disloc job request. Empty strings mean "not supplied";
// numeric options stay raw until the orchestrator resolves them.
type Request struct {
	Input          string
	InputFile      string
	InputURL       string
	Output         string
	Elevation      string
	Azimuth        string
	RadarFrequency string
	WorkDir        string
	API            bool

	// Set by feed-driven jobs, empty for direct requests
	EventID       string
	CorrelationID string
	// Deadline overrides the service timeout when positive
	Deadline time.Duration
}

// RequestFromOptions builds a Request from a flat option map such as a URL
// query. The presence of "api" switches the manifest to bare filenames.
func RequestFromOptions(opts map[string]string) Request {
	req := Request{
		Input:          opts[OptionInput],
		InputFile:      opts[OptionInputFile],
		InputURL:       opts[OptionInputURL],
		Output:         opts[OptionOutput],
		Elevation:      opts[OptionElevation],
		Azimuth:        opts[OptionAzimuth],
		RadarFrequency: opts[OptionRadarFrequency],
		WorkDir:        opts[OptionWorkDir],
	}
	if v, ok := opts[OptionAPI]; ok {
		req.API = !strings.EqualFold(v, "false") && v != "0"
	}
	return req
}

// HasInput reports whether at least one input source is set
func (r Request) HasInput() bool {
	return r.Input != "" || r.InputFile != "" || r.InputURL != ""
}

// OutputPrefix returns the output filename prefix, defaulted
func (r Request) OutputPrefix() string {
	if r.Output == "" {
		return DefaultOutputPrefix
	}
	return r.Output
}
