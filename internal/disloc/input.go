// Package disloc builds disloc input files from fault models.
package disloc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dandantas/disloc/internal/model"
)

// InputFileName is the fixed name of the input file inside a workspace
const InputFileName = "input.txt"

// finiteFault is the disloc source type for a rectangular fault
const finiteFault = 1

// RenderInput writes a validated fault model in disloc's input layout:
//
//	lat lon style
//	x0 dx nx y0 dy ny          (grid style)
//	n / x y ...                (scatter style)
//	x y strike                 (per fault)
//	1 depth dip lambda mu u1 u2 u3 length width
func RenderInput(m model.FaultModel) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	p := m.Params

	writeLine(&b, num(p.OriginLat), num(p.OriginLon), strconv.Itoa(int(p.Style)))

	switch p.Style {
	case model.GridObservation:
		g := p.Grid
		writeLine(&b,
			num(g.MinX), num(g.XSpacing), strconv.Itoa(g.XIterations),
			num(g.MinY), num(g.YSpacing), strconv.Itoa(g.YIterations),
		)
	case model.ScatterObservation:
		writeLine(&b, strconv.Itoa(len(p.Points)))
		for _, pt := range p.Points {
			writeLine(&b, num(pt.X), num(pt.Y))
		}
	}

	for _, f := range m.Faults {
		writeLine(&b, num(f.LocationX), num(f.LocationY), num(f.StrikeAngle))
		writeLine(&b,
			strconv.Itoa(finiteFault),
			num(f.Depth), num(f.DipAngle), num(f.LameLambda), num(f.LameMu),
			num(f.StrikeSlip), num(f.DipSlip), num(f.TensileSlip),
			num(f.Length), num(f.Width),
		)
	}

	return b.String(), nil
}

func writeLine(b *strings.Builder, fields ...string) {
	b.WriteString(strings.Join(fields, " "))
	b.WriteByte('\n')
}

// num formats floats the way the existing input files do: shortest form,
// always with a decimal point (5000.0, -19.2252027).
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Describe is a one-line summary of a fault model for logs
func Describe(m model.FaultModel) string {
	return fmt.Sprintf("origin=(%v,%v) style=%d faults=%d", m.Params.OriginLat, m.Params.OriginLon, m.Params.Style, len(m.Faults))
}
