package aligner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	plotWidth  = 1000
	plotHeight = 240
)

// plotter writes one SVG per chapter showing the amplitude trace, the frame
// means and both boundary positions.
type plotter struct {
	dir string
}

func newPlotter(chaptersDir, mediaID string) (*plotter, error) {
	dir := PlotDir(chaptersDir, mediaID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &plotter{dir: dir}, nil
}

// PlotDir is where the debug plots of mediaID are written.
func PlotDir(chaptersDir, mediaID string) string {
	return filepath.Join(chaptersDir, "plots", mediaID)
}

func (p *plotter) write(w *Window) error {
	path := filepath.Join(p.dir, strconv.Itoa(w.Index)+".svg")
	return os.WriteFile(path, []byte(renderSVG(w)), 0o644)
}

func renderSVG(w *Window) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		plotWidth, 2*plotHeight+40, plotWidth, 2*plotHeight+40)
	fmt.Fprintf(&b, `<text x="8" y="16" font-family="monospace" font-size="13">chapter %d: nominal %.3fs, corrected %.3fs</text>`+"\n",
		w.Index, w.Nominal, w.Corrected)

	// Amplitude, reduced to one peak per pixel column.
	b.WriteString(`<g transform="translate(0,24)">`)
	b.WriteString(polyline(peaks(w.Amplitude, plotWidth), plotHeight, "#4477aa"))
	b.WriteString("</g>\n")

	// Frame means with both markers.
	fmt.Fprintf(&b, `<g transform="translate(0,%d)">`, plotHeight+32)
	b.WriteString(stairs(w.Means, plotHeight, "#555555"))
	frames := float64(len(w.Means))
	if frames > 0 {
		nominalFrame := (w.Nominal - w.Start) / FrameSeconds
		b.WriteString(marker(nominalFrame/frames*plotWidth, plotHeight, "#cc3311"))
		b.WriteString(marker(float64(w.MinFrame)/frames*plotWidth, plotHeight, "#228833"))
	}
	b.WriteString("</g>\n</svg>\n")
	return b.String()
}

func peaks(values []float64, columns int) []float64 {
	if len(values) <= columns {
		return values
	}
	out := make([]float64, columns)
	per := float64(len(values)) / float64(columns)
	for c := range out {
		lo, hi := int(float64(c)*per), int(float64(c+1)*per)
		for _, v := range values[lo:min(hi, len(values))] {
			out[c] = max(out[c], v)
		}
	}
	return out
}

func scale(values []float64) float64 {
	top := 0.0
	for _, v := range values {
		top = max(top, v)
	}
	if top == 0 {
		return 1
	}
	return top
}

func polyline(values []float64, height int, color string) string {
	if len(values) == 0 {
		return ""
	}
	top := scale(values)
	step := float64(plotWidth) / float64(max(1, len(values)-1))
	var pts strings.Builder
	for i, v := range values {
		fmt.Fprintf(&pts, "%.1f,%.1f ", float64(i)*step, float64(height)*(1-v/top))
	}
	return fmt.Sprintf(`<polyline fill="none" stroke="%s" stroke-width="1" points="%s"/>`, color, strings.TrimSpace(pts.String()))
}

func stairs(values []float64, height int, color string) string {
	if len(values) == 0 {
		return ""
	}
	top := scale(values)
	step := float64(plotWidth) / float64(len(values))
	var pts strings.Builder
	for i, v := range values {
		y := float64(height) * (1 - v/top)
		fmt.Fprintf(&pts, "%.1f,%.1f %.1f,%.1f ", float64(i)*step, y, float64(i+1)*step, y)
	}
	return fmt.Sprintf(`<polyline fill="none" stroke="%s" stroke-width="1" points="%s"/>`, color, strings.TrimSpace(pts.String()))
}

func marker(x float64, height int, color string) string {
	return fmt.Sprintf(`<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="%s" stroke-width="2"/>`, x, x, height, color)
}
