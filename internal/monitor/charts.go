package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/radiohal/internal/httputil"
)

// handleStatsChart renders line charts of the sampled history: packet rates
// on top, the running RSSI summary below.
func (ws *WebServer) handleStatsChart(w http.ResponseWriter, r *http.Request) {
	history := ws.hist.samples()
	if len(history) == 0 {
		httputil.RespondError(w, http.StatusNotFound, "no samples recorded yet")
		return
	}

	x := make([]string, 0, len(history))
	txRate := make([]opts.LineData, 0, len(history))
	rxRate := make([]opts.LineData, 0, len(history))
	rssiMean := make([]opts.LineData, 0, len(history))
	rssiMin := make([]opts.LineData, 0, len(history))
	rssiMax := make([]opts.LineData, 0, len(history))
	for _, s := range history {
		x = append(x, s.Time.Format("15:04:05"))
		txRate = append(txRate, opts.LineData{Value: s.TxPerSec})
		rxRate = append(rxRate, opts.LineData{Value: s.RxPerSec})
		rssiMean = append(rssiMean, opts.LineData{Value: s.Stats.RSSI.Mean})
		rssiMin = append(rssiMin, opts.LineData{Value: s.Stats.RSSI.Min})
		rssiMax = append(rssiMax, opts.LineData{Value: s.Stats.RSSI.Max})
	}

	throughput := charts.NewLine()
	throughput.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Link Throughput", Subtitle: fmt.Sprintf("device=%s samples=%d", ws.device, len(history))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	throughput.SetXAxis(x).
		AddSeries("tx packets/s", txRate).
		AddSeries("rx packets/s", rxRate)

	rssi := charts.NewLine()
	rssi.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "RSSI", Subtitle: "running summary over received packets (dBm)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	rssi.SetXAxis(x).
		AddSeries("mean", rssiMean).
		AddSeries("min", rssiMin).
		AddSeries("max", rssiMax)

	page := components.NewPage()
	page.AddCharts(throughput, rssi)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
