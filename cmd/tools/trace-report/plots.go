package main

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/radiohal/capture"
)

// exportPlots writes PNG plots of the trace: the received signal timeline
// and the payload sizes of both directions. Returns how many were written.
func exportPlots(outputDir, base string, byDir map[capture.Direction]*series) (int, error) {
	count := 0

	rx := byDir[capture.Received]
	if len(rx.rssi) > 0 {
		p := plot.New()
		p.Title.Text = "Received Signal Strength"
		p.X.Label.Text = "Packet"
		p.Y.Label.Text = "RSSI (dBm)"

		pts := make(plotter.XYs, len(rx.rssi))
		for i, v := range rx.rssi {
			pts[i] = plotter.XY{X: float64(i + 1), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return count, err
		}
		line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)

		file := filepath.Join(outputDir, base+"_rssi.png")
		if err := p.Save(10*vg.Inch, 4*vg.Inch, file); err != nil {
			return count, fmt.Errorf("save rssi plot: %w", err)
		}
		count++
	}

	p := plot.New()
	p.Title.Text = "Payload Size"
	p.X.Label.Text = "Packet"
	p.Y.Label.Text = "Bytes"

	colors := map[capture.Direction]color.RGBA{
		capture.Sent:     {R: 214, G: 39, B: 40, A: 255},
		capture.Received: {R: 44, G: 160, B: 44, A: 255},
	}
	added := false
	for _, dir := range []capture.Direction{capture.Sent, capture.Received} {
		s := byDir[dir]
		if len(s.sizes) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.sizes))
		for i, v := range s.sizes {
			pts[i] = plotter.XY{X: float64(i + 1), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return count, err
		}
		line.Color = colors[dir]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(dir.String(), line)
		added = true
	}
	if added {
		p.Legend.Top = true
		file := filepath.Join(outputDir, base+"_sizes.png")
		if err := p.Save(10*vg.Inch, 4*vg.Inch, file); err != nil {
			return count, fmt.Errorf("save size plot: %w", err)
		}
		count++
	}

	return count, nil
}
