// Package monitor serves the HTTP monitoring interface for a radio link:
// a status page, JSON statistics, sampled history charts and the admin
// debug surface.
package monitor

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/radiohal/capture"
	"github.com/banshee-data/radiohal/internal/httputil"
	"github.com/banshee-data/radiohal/internal/timeutil"
	"github.com/banshee-data/radiohal/internal/units"
	"github.com/banshee-data/radiohal/radio"
	"github.com/banshee-data/radiohal/tracedb"
)

//go:embed status.html
var statusHTML embed.FS

// StatsSource yields a point-in-time snapshot of link counters. It is
// satisfied by capture.Radio.
type StatsSource interface {
	Stats() capture.Stats
}

// WebServer handles the HTTP interface for monitoring a radio link. It
// provides endpoints for health checks, live statistics and sampled
// history charts.
type WebServer struct {
	address  string
	device   string
	channel  string
	source   StatsSource
	db       *tracedb.Store
	clock    timeutil.Clock
	interval time.Duration
	logf     func(format string, args ...any)
	server   *http.Server
	started  time.Time

	hist *history
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	// Address is the listen address, host:port.
	Address string

	// Device labels the radio on the status page, typically the serial
	// device path or "sim".
	Device string

	// Channel is the tuned channel shown on the status page. The zero
	// value displays as not configured.
	Channel radio.Channel

	// Source supplies the live counters. Nil serves zeroes.
	Source StatsSource

	// DB optionally attaches the trace database admin routes.
	DB *tracedb.Store

	// SampleInterval paces the history sampler. Default 5s.
	SampleInterval time.Duration

	// HistorySize bounds the sampled history. Default 720 samples, an
	// hour at the default interval.
	HistorySize int

	// Clock drives uptime and sampling. Nil uses real time.
	Clock timeutil.Clock

	// Logf receives server diagnostics. Nil uses log.Printf.
	Logf func(format string, args ...any)
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:  config.Address,
		device:   config.Device,
		channel:  channelLabel(config.Channel),
		source:   config.Source,
		db:       config.DB,
		clock:    config.Clock,
		interval: config.SampleInterval,
		logf:     config.Logf,
	}
	if ws.clock == nil {
		ws.clock = timeutil.RealClock{}
	}
	if ws.interval <= 0 {
		ws.interval = 5 * time.Second
	}
	if ws.logf == nil {
		ws.logf = log.Printf
	}
	size := config.HistorySize
	if size <= 0 {
		size = 720
	}
	ws.hist = newHistory(size)
	ws.started = ws.clock.Now()

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// channelLabel renders the tuned channel for the status surfaces.
func channelLabel(ch radio.Channel) string {
	if ch.FrequencyHz == 0 {
		return "not configured"
	}
	return fmt.Sprintf("%s bw %s %s", units.FormatFrequency(ch.FrequencyHz),
		units.FormatFrequency(ch.BandwidthHz), units.FormatPower(ch.PowerDBm))
}

// Start begins the HTTP server and the history sampler, and handles
// graceful shutdown when ctx ends.
func (ws *WebServer) Start(ctx context.Context) error {
	// Start server in a goroutine so it doesn't block
	go func() {
		ws.logf("starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logf("HTTP server failed: %v", err)
		}
	}()

	go ws.runSampler(ctx)

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	ws.logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		ws.logf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := ws.server.Close(); err != nil {
			ws.logf("HTTP server force close error: %v", err)
		}
	}

	ws.logf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/stats/history", ws.handleHistory)
	mux.HandleFunc("/charts/stats", ws.handleStatsChart)

	// The trace store mounts its own debugger alongside the SQL console;
	// without a store only the plain debug handlers go up.
	if ws.db != nil {
		if err := ws.db.AttachAdminRoutes(mux); err != nil {
			ws.logf("admin routes unavailable: %v", err)
		}
	} else {
		tsweb.Debugger(mux)
	}

	return mux
}

// handleHealth handles the health check endpoint
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "radiohal", "timestamp": "%s"}`, ws.clock.Now().UTC().Format(time.RFC3339))
}

// StatusInfo is the /api/stats response body.
type StatusInfo struct {
	Device  string        `json:"device"`
	Channel string        `json:"channel"`
	Uptime  string        `json:"uptime"`
	Stats   capture.Stats `json:"stats"`
}

// handleStats returns the current counters as JSON.
func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if ws.source == nil {
		httputil.RespondError(w, http.StatusNotFound, "no stats source configured")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, StatusInfo{
		Device:  ws.device,
		Channel: ws.channel,
		Uptime:  ws.clock.Since(ws.started).Round(time.Second).String(),
		Stats:   ws.source.Stats(),
	})
}

// handleHistory returns the sampled history as a JSON array, oldest first.
func (ws *WebServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, ws.hist.samples())
}

// handleStatus handles the main status page endpoint
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	traceStatus := "disabled"
	if ws.db != nil {
		traceStatus = "enabled"
	}

	var stats capture.Stats
	if ws.source != nil {
		stats = ws.source.Stats()
	}

	tmpl, err := template.ParseFS(statusHTML, "status.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		Device      string
		Channel     string
		HTTPAddress string
		TraceStatus string
		Uptime      string
		Samples     int
		Stats       capture.Stats
	}{
		Device:      ws.device,
		Channel:     ws.channel,
		HTTPAddress: ws.address,
		TraceStatus: traceStatus,
		Uptime:      ws.clock.Since(ws.started).Round(time.Second).String(),
		Samples:     ws.hist.len(),
		Stats:       stats,
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// Close shuts down the web server
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}
