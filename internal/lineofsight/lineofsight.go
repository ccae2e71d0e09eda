// Package lineofsight projects disloc displacements onto a radar line of
// sight and reports the geographic extent of the result.
package lineofsight

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dandantas/disloc/internal/model"
)

// SpeedOfLight in m/s, used to turn radar frequency into wavelength
const SpeedOfLight = 299792458.0

const kmPerDegree = 111.32

// Geometry is the radar viewing geometry of a projection
type Geometry struct {
	ElevationDeg float64
	AzimuthDeg   float64
	WavelengthCm float64
}

// WavelengthCm converts a radar frequency in GHz to a wavelength in cm
func WavelengthCm(frequencyGHz float64) float64 {
	return SpeedOfLight / (frequencyGHz * 1e9) * 100
}

// Projector is the post-processing collaborator run after a successful
// disloc execution
type Projector interface {
	Project(ctx context.Context, geom Geometry, outputPath, imagePath string) (model.LatLonBox, error)
}

// GridProjector reads disloc grid output, computes the bounding box of the
// observation points and writes a line-of-sight table to imagePath
type GridProjector struct{}

// NewGridProjector creates a GridProjector
func NewGridProjector() *GridProjector {
	return &GridProjector{}
}

// Sample is one observation point of disloc output
type Sample struct {
	X, Y       float64 // km east/north of the origin
	UX, UY, UZ float64 // displacement
}

// Output is the parsed content of a disloc output file
type Output struct {
	OriginLat float64
	OriginLon float64
	Samples   []Sample
}

// Project implements Projector
func (p *GridProjector) Project(ctx context.Context, geom Geometry, outputPath, imagePath string) (model.LatLonBox, error) {
	if err := ctx.Err(); err != nil {
		return model.LatLonBox{}, err
	}
	if geom.WavelengthCm <= 0 {
		return model.LatLonBox{}, fmt.Errorf("wavelength must be positive, got %v", geom.WavelengthCm)
	}

	f, err := os.Open(outputPath)
	if err != nil {
		return model.LatLonBox{}, fmt.Errorf("open disloc output: %w", err)
	}
	defer f.Close()

	out, err := ParseOutput(f)
	if err != nil {
		return model.LatLonBox{}, err
	}

	box := out.BoundingBox()

	if imagePath != "" {
		if err := writeTable(imagePath, out, geom); err != nil {
			return model.LatLonBox{}, err
		}
	}

	return box, nil
}

// ParseOutput reads the header line, skips the echoed fault lines and
// collects the observation rows that follow the column header
func ParseOutput(r io.Reader) (*Output, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, errors.New("disloc output is empty")
	}
	header := strings.Fields(scanner.Text())
	if len(header) < 4 {
		return nil, fmt.Errorf("malformed disloc header %q", scanner.Text())
	}

	out := &Output{}
	var err error
	if out.OriginLat, err = strconv.ParseFloat(header[2], 64); err != nil {
		return nil, fmt.Errorf("parse origin latitude: %w", err)
	}
	if out.OriginLon, err = strconv.ParseFloat(header[3], 64); err != nil {
		return nil, fmt.Errorf("parse origin longitude: %w", err)
	}

	inGrid := false
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if !inGrid {
			inGrid = fields[0] == "x"
			continue
		}
		if len(fields) < 5 {
			return nil, fmt.Errorf("short observation row %q", scanner.Text())
		}

		var vals [5]float64
		for i := range vals {
			if vals[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
				return nil, fmt.Errorf("parse observation row %q: %w", scanner.Text(), err)
			}
		}
		out.Samples = append(out.Samples, Sample{X: vals[0], Y: vals[1], UX: vals[2], UY: vals[3], UZ: vals[4]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read disloc output: %w", err)
	}
	if len(out.Samples) == 0 {
		return nil, errors.New("disloc output has no observation rows")
	}

	return out, nil
}

// LatLon converts a km offset from the origin to geographic coordinates
func (o *Output) LatLon(x, y float64) (lat, lon float64) {
	lat = o.OriginLat + y/kmPerDegree
	cos := math.Cos(o.OriginLat * math.Pi / 180)
	if math.Abs(cos) < 1e-9 {
		return lat, o.OriginLon
	}
	lon = o.OriginLon + x/(kmPerDegree*cos)
	return lat, lon
}

// BoundingBox is the geographic extent of all samples
func (o *Output) BoundingBox() model.LatLonBox {
	minX, maxX := o.Samples[0].X, o.Samples[0].X
	minY, maxY := o.Samples[0].Y, o.Samples[0].Y
	for _, s := range o.Samples[1:] {
		minX = math.Min(minX, s.X)
		maxX = math.Max(maxX, s.X)
		minY = math.Min(minY, s.Y)
		maxY = math.Max(maxY, s.Y)
	}

	south, west := o.LatLon(minX, minY)
	north, east := o.LatLon(maxX, maxY)
	return model.LatLonBox{North: north, South: south, East: east, West: west}
}

// LOS projects a displacement onto the unit vector pointing from the
// ground towards the sensor
func LOS(s Sample, geom Geometry) float64 {
	el := geom.ElevationDeg * math.Pi / 180
	az := geom.AzimuthDeg * math.Pi / 180
	return s.UX*math.Cos(el)*math.Sin(az) + s.UY*math.Cos(el)*math.Cos(az) + s.UZ*math.Sin(el)
}

func writeTable(path string, out *Output, geom Geometry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create line-of-sight table: %w", err)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"x", "y", "lat", "lon", "los", "cycles"})
	for _, s := range out.Samples {
		lat, lon := out.LatLon(s.X, s.Y)
		los := LOS(s, geom)
		_ = w.Write([]string{
			formatFloat(s.X), formatFloat(s.Y),
			formatFloat(lat), formatFloat(lon),
			formatFloat(los), formatFloat(2 * los / geom.WavelengthCm),
		})
	}
	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write line-of-sight table: %w", err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}
