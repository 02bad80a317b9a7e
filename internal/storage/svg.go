package storage

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/choreo/internal/trace"
)

const (
	svgBackground = "#0a0a0a"
	svgStroke     = "#00b4d8"
	svgEmit       = "#ff6b6b"
)

type point struct{ X, Y float64 }

// WriteSVG draws one live field over time. Samples that emitted a broadcast
// are marked with a dot.
func WriteSVG(w io.Writer, tr *trace.Trace, field string, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("svg size %dx%d must be positive", width, height)
	}
	var pts, emits []point
	for _, s := range tr.Samples {
		v, ok := s.Live[field]
		if !ok {
			continue
		}
		p := point{s.At, v}
		pts = append(pts, p)
		if s.Emitted {
			emits = append(emits, p)
		}
	}
	if len(pts) < 2 {
		return fmt.Errorf("field %q: need at least 2 samples, have %d", field, len(pts))
	}

	proj := newProjection(pts, width, height)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, svgBackground, svgStroke)

	for i, p := range pts {
		x, y := proj.apply(p)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")

	if len(emits) > 0 {
		fmt.Fprintf(&sb, "<g fill=\"%s\">\n", svgEmit)
		for _, p := range emits {
			x, y := proj.apply(p)
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"2\"/>\n", x, y)
		}
		sb.WriteString("</g>\n")
	}
	fmt.Fprintf(&sb, "<text x=\"8\" y=\"16\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">%s / %s</text>\n",
		svgStroke, tr.Meta.Scenario, field)
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// projection maps data space onto the canvas with 10% padding on each axis.
type projection struct {
	minX, minY     float64
	rangeX, rangeY float64
	width, height  float64
}

func newProjection(pts []point, width, height int) projection {
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	return projection{
		minX: minX, minY: minY,
		rangeX: rangeX * 1.2, rangeY: rangeY * 1.2,
		width: float64(width), height: float64(height),
	}
}

func (p projection) apply(pt point) (float64, float64) {
	x := (pt.X - p.minX) / p.rangeX * p.width
	y := p.height - (pt.Y-p.minY)/p.rangeY*p.height
	return x, y
}
