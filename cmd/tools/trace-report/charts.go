package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/radiohal/capture"
)

const sizeBucketWidth = 16

// exportCharts renders the interactive dashboard: a payload size histogram
// per direction and the received signal timeline when the trace carries one.
func exportCharts(path string, byDir map[capture.Direction]*series) error {
	page := components.NewPage()

	labels, sentBuckets := sizeHistogram(byDir[capture.Sent].sizes)
	_, recvBuckets := sizeHistogram(byDir[capture.Received].sizes)

	sizes := charts.NewBar()
	sizes.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "420px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Payload Sizes",
			Subtitle: fmt.Sprintf("packets per %d byte bucket", sizeBucketWidth),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	sizes.SetXAxis(labels).
		AddSeries("sent", sentBuckets).
		AddSeries("received", recvBuckets)
	page.AddCharts(sizes)

	rx := byDir[capture.Received]
	if len(rx.rssi) > 0 {
		x := make([]string, len(rx.rssi))
		rssiData := make([]opts.LineData, len(rx.rssi))
		for i, v := range rx.rssi {
			x[i] = strconv.Itoa(i + 1)
			rssiData[i] = opts.LineData{Value: v}
		}

		rssi := charts.NewLine()
		rssi.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Width:  "100%",
				Height: "420px",
			}),
			charts.WithTitleOpts(opts.Title{
				Title:    "Received Signal Strength",
				Subtitle: "per packet (dBm)",
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		)
		rssi.SetXAxis(x).AddSeries("rssi", rssiData)
		page.AddCharts(rssi)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

// sizeHistogram buckets payload sizes into fixed width bins covering the
// 0..255 payload range, so both directions share one axis.
func sizeHistogram(sizes []float64) ([]string, []opts.BarData) {
	const buckets = 256 / sizeBucketWidth

	labels := make([]string, buckets)
	counts := make([]int, buckets)
	for i := 0; i < buckets; i++ {
		labels[i] = fmt.Sprintf("%d-%d", i*sizeBucketWidth, (i+1)*sizeBucketWidth-1)
	}
	for _, v := range sizes {
		b := int(v) / sizeBucketWidth
		if b < 0 {
			b = 0
		}
		if b >= buckets {
			b = buckets - 1
		}
		counts[b]++
	}

	data := make([]opts.BarData, buckets)
	for i, c := range counts {
		data[i] = opts.BarData{Value: c}
	}
	return labels, data
}
