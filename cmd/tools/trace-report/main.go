// Package main provides an offline analysis tool for radio link traces.
// It reads the pcapng files and SQLite trace databases written by radioutil
// and reports per-direction packet, timing and signal statistics, with
// optional chart and plot output.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/gopacket/pcapgo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/radiohal/capture"
	"github.com/banshee-data/radiohal/tracedb"
)

// Config holds configuration for the trace analysis.
type Config struct {
	PcapFile    string
	DBPath      string
	SessionID   string
	OutputDir   string
	Limit       int
	ExportJSON  bool
	ExportHTML  bool
	ExportPlots bool
	Verbose     bool
}

// Report is the full analysis result.
type Report struct {
	TraceFile    string                      `json:"trace_file,omitempty"`
	SessionID    string                      `json:"session_id,omitempty"`
	Duration     time.Duration               `json:"duration_ns"`
	DurationSecs float64                     `json:"duration_secs"`
	TotalPackets int                         `json:"total_packets"`
	Directions   map[string]*DirectionReport `json:"directions"`
}

// DirectionReport aggregates one capture direction.
type DirectionReport struct {
	Packets       int          `json:"packets"`
	Bytes         int          `json:"bytes"`
	PacketsPerSec float64      `json:"packets_per_sec"`
	PayloadBytes  SeriesStats  `json:"payload_bytes"`
	GapMillis     SeriesStats  `json:"inter_packet_gap_ms"`
	RSSI          *SeriesStats `json:"rssi_dbm,omitempty"`
	LQI           *SeriesStats `json:"lqi,omitempty"`
}

// SeriesStats summarizes one measurement series.
type SeriesStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P85    float64 `json:"p85"`
	P95    float64 `json:"p95"`
}

// series accumulates the raw samples of one direction before statistics.
type series struct {
	times []time.Time
	sizes []float64
	rssi  []float64
	lqi   []float64
	bytes int
}

func main() {
	config := parseFlags()

	if config.PcapFile == "" && config.DBPath == "" {
		fmt.Fprintln(os.Stderr, "Error: a trace source is required; pass -pcap and/or -db")
		flag.Usage()
		os.Exit(1)
	}

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	report, byDir, err := analyzeTrace(&config)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	printSummary(report)

	if err := exportResults(config, report, byDir); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.PcapFile, "pcap", "", "Path to a pcapng trace written by radioutil")
	flag.StringVar(&config.DBPath, "db", "", "Path to a SQLite trace database")
	flag.StringVar(&config.SessionID, "session", "", "Session ID within the database (default: most recent)")
	flag.StringVar(&config.OutputDir, "output", ".", "Output directory for results")
	flag.IntVar(&config.Limit, "limit", 100000, "Maximum packets to load from the database")
	flag.BoolVar(&config.ExportJSON, "json", true, "Export the full report to JSON")
	flag.BoolVar(&config.ExportHTML, "html", false, "Export an HTML chart dashboard")
	flag.BoolVar(&config.ExportPlots, "plots", false, "Export PNG plots")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Offline analysis of radio link traces\n\n")
		fmt.Fprintf(os.Stderr, "The tool reads either capture source radioutil produces:\n")
		fmt.Fprintf(os.Stderr, "  - a pcapng file (radioutil --trace) for packet sizes and timing\n")
		fmt.Fprintf(os.Stderr, "  - a trace database (radioutil --db) which also carries RSSI and LQI\n")
		fmt.Fprintf(os.Stderr, "With both, the pcap supplies timing and the database signal data.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -pcap link.pcapng -output ./results\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db trace.db -session 1b2e... -html -plots\n", os.Args[0])
	}

	flag.Parse()
	return config
}

func analyzeTrace(config *Config) (*Report, map[capture.Direction]*series, error) {
	byDir := map[capture.Direction]*series{
		capture.Sent:     {},
		capture.Received: {},
	}

	if config.PcapFile != "" {
		if err := ingestPcap(config.PcapFile, byDir, config.Verbose); err != nil {
			return nil, nil, err
		}
	}
	if config.DBPath != "" {
		if err := ingestDB(config, byDir); err != nil {
			return nil, nil, err
		}
	}

	report := &Report{
		TraceFile:  config.PcapFile,
		SessionID:  config.SessionID,
		Directions: make(map[string]*DirectionReport),
	}

	var first, last time.Time
	for _, s := range byDir {
		for _, t := range s.times {
			if first.IsZero() || t.Before(first) {
				first = t
			}
			if t.After(last) {
				last = t
			}
		}
	}
	if !first.IsZero() {
		report.Duration = last.Sub(first)
		report.DurationSecs = report.Duration.Seconds()
	}

	for dir, s := range byDir {
		dr := &DirectionReport{
			Packets:      len(s.times),
			Bytes:        s.bytes,
			PayloadBytes: computeSeriesStats(s.sizes),
			GapMillis:    computeSeriesStats(gapsMillis(s.times)),
		}
		if report.DurationSecs > 0 {
			dr.PacketsPerSec = float64(dr.Packets) / report.DurationSecs
		}
		if len(s.rssi) > 0 {
			st := computeSeriesStats(s.rssi)
			dr.RSSI = &st
		}
		if len(s.lqi) > 0 {
			st := computeSeriesStats(s.lqi)
			dr.LQI = &st
		}
		report.Directions[dir.String()] = dr
		report.TotalPackets += dr.Packets
	}

	return report, byDir, nil
}

// ingestPcap reads packet sizes and timestamps, attributing direction by the
// capture interface each packet was written to.
func ingestPcap(path string, byDir map[capture.Direction]*series, verbose bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pcap: %w", err)
	}
	defer f.Close()

	r, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		return fmt.Errorf("read pcapng header: %w", err)
	}

	n := 0
	for {
		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read packet %d: %w", n, err)
		}
		n++

		dir := capture.Sent
		if iface, err := r.Interface(ci.InterfaceIndex); err == nil {
			if d, ok := capture.DirectionOfInterface(iface.Name); ok {
				dir = d
			} else if verbose {
				log.Printf("packet %d: unknown interface %q, counting as sent", n, iface.Name)
			}
		}

		s := byDir[dir]
		s.times = append(s.times, ci.Timestamp)
		s.sizes = append(s.sizes, float64(len(data)))
		s.bytes += len(data)
	}
	if verbose {
		log.Printf("pcap: %d packets", n)
	}
	return nil
}

// ingestDB loads a session's packets. Signal readings always come from
// here; sizes and timing too unless a pcap already supplied them.
func ingestDB(config *Config, byDir map[capture.Direction]*series) error {
	store, err := tracedb.Open(config.DBPath)
	if err != nil {
		return fmt.Errorf("open trace db: %w", err)
	}
	defer store.Close()

	if config.SessionID == "" {
		sessions, err := store.Sessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			return fmt.Errorf("no sessions in %s", config.DBPath)
		}
		config.SessionID = sessions[0].ID
		log.Printf("using most recent session %s", config.SessionID)
	}

	records, err := store.Packets(config.SessionID, config.Limit)
	if err != nil {
		return fmt.Errorf("load packets: %w", err)
	}

	havePcap := config.PcapFile != ""
	for _, rec := range records {
		s := byDir[rec.Direction]
		if rec.Direction == capture.Received {
			s.rssi = append(s.rssi, float64(rec.Info.RSSI))
			s.lqi = append(s.lqi, float64(rec.Info.LQI))
		}
		if !havePcap {
			s.times = append(s.times, rec.Time)
			s.sizes = append(s.sizes, float64(len(rec.Payload)))
			s.bytes += len(rec.Payload)
		}
	}
	if config.Verbose {
		log.Printf("db: %d packets from session %s", len(records), config.SessionID)
	}
	return nil
}

// gapsMillis returns the deltas between consecutive timestamps.
func gapsMillis(times []time.Time) []float64 {
	if len(times) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		gaps = append(gaps, times[i].Sub(times[i-1]).Seconds()*1000)
	}
	return gaps
}

func computeSeriesStats(samples []float64) SeriesStats {
	if len(samples) == 0 {
		return SeriesStats{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	s := SeriesStats{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Min:   floats.Min(sorted),
		Max:   floats.Max(sorted),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P85:   stat.Quantile(0.85, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

func printSummary(report *Report) {
	fmt.Println("\n========== Trace Report ==========")
	if report.TraceFile != "" {
		fmt.Printf("Trace: %s\n", report.TraceFile)
	}
	if report.SessionID != "" {
		fmt.Printf("Session: %s\n", report.SessionID)
	}
	fmt.Printf("Duration: %.1f seconds\n", report.DurationSecs)
	fmt.Printf("Packets: %d\n", report.TotalPackets)

	for _, dir := range []string{capture.Sent.String(), capture.Received.String()} {
		dr := report.Directions[dir]
		if dr == nil || dr.Packets == 0 {
			continue
		}
		fmt.Println()
		fmt.Printf("%s: %d packets, %d bytes, %.2f packets/s\n", dir, dr.Packets, dr.Bytes, dr.PacketsPerSec)
		fmt.Printf("  payload bytes:  mean %.1f  p50 %.0f  p95 %.0f  max %.0f\n",
			dr.PayloadBytes.Mean, dr.PayloadBytes.P50, dr.PayloadBytes.P95, dr.PayloadBytes.Max)
		if dr.GapMillis.Count > 0 {
			fmt.Printf("  gap ms:         mean %.1f  p50 %.1f  p95 %.1f  max %.1f\n",
				dr.GapMillis.Mean, dr.GapMillis.P50, dr.GapMillis.P95, dr.GapMillis.Max)
		}
		if dr.RSSI != nil {
			fmt.Printf("  rssi dbm:       mean %.1f  std %.1f  range %.0f to %.0f\n",
				dr.RSSI.Mean, dr.RSSI.StdDev, dr.RSSI.Min, dr.RSSI.Max)
		}
		if dr.LQI != nil {
			fmt.Printf("  lqi:            mean %.1f  range %.0f to %.0f\n",
				dr.LQI.Mean, dr.LQI.Min, dr.LQI.Max)
		}
	}
	fmt.Println("==================================")
}

func baseName(config Config) string {
	switch {
	case config.PcapFile != "":
		base := filepath.Base(config.PcapFile)
		return strings.TrimSuffix(base, filepath.Ext(base))
	case config.SessionID != "":
		return "session_" + config.SessionID
	default:
		return "trace"
	}
}

func exportResults(config Config, report *Report, byDir map[capture.Direction]*series) error {
	base := baseName(config)

	if config.ExportJSON {
		jsonPath := filepath.Join(config.OutputDir, base+"_report.json")
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON marshal: %w", err)
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		fmt.Printf("JSON report: %s\n", jsonPath)
	}

	if config.ExportHTML {
		htmlPath := filepath.Join(config.OutputDir, base+"_report.html")
		if err := exportCharts(htmlPath, byDir); err != nil {
			return fmt.Errorf("write charts: %w", err)
		}
		fmt.Printf("HTML charts: %s\n", htmlPath)
	}

	if config.ExportPlots {
		n, err := exportPlots(config.OutputDir, base, byDir)
		if err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		if n > 0 {
			fmt.Printf("PNG plots: %d in %s\n", n, config.OutputDir)
		}
	}

	return nil
}
