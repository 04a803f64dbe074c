package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/radiohal/blocking"
	"github.com/banshee-data/radiohal/capture"
	"github.com/banshee-data/radiohal/internal/config"
	"github.com/banshee-data/radiohal/internal/monitor"
	"github.com/banshee-data/radiohal/radio"
	"github.com/banshee-data/radiohal/radiotest"
	"github.com/banshee-data/radiohal/serialradio"
	"github.com/banshee-data/radiohal/tracedb"
)

// backend is the capability set both the serial driver and the simulator
// provide. Commands that only need a subset still get it through here.
type backend interface {
	radio.Transceiver
	radio.SignalMeter
}

// link bundles everything a command runs against: the configured radio, the
// capture wrapper when any sink is active, and the teardown list.
type link struct {
	cfg *config.Config

	// radio is the raw driver. tr is what commands should transmit and
	// receive through; it is the capture wrapper when one is active and
	// the raw driver otherwise.
	radio backend
	tr    radio.TransmitReceiver

	wrapper *capture.Radio[backend]
	store   *tracedb.Store
	session *tracedb.Session

	closers []func() error
}

func (l *link) poll() blocking.Options {
	return blocking.Options{PollInterval: l.cfg.PollInterval}
}

func (l *link) deviceLabel() string {
	if flagDev {
		return "sim"
	}
	return l.cfg.Device
}

// openLink builds the radio stack for a command: driver, channel
// configuration, capture sinks and the monitor server when requested. The
// context bounds the monitor's lifetime; the caller closes the link.
func openLink(ctx context.Context) (*link, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
	}

	l := &link{cfg: cfg}

	if flagDev {
		sim := radiotest.NewSim()
		sim.Loopback = true
		sim.RSSI = -60
		sim.LQI = 110
		l.radio = sim
	} else {
		if cfg.Device == "" {
			return nil, errors.New("device is required; use -d <device> or --dev for the simulator")
		}
		r, err := serialradio.Open(cfg.Device, serialradio.PortOptions{BaudRate: cfg.Baud}, serialradio.Config{})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
		}
		l.radio = r
		l.closers = append(l.closers, r.Close)
	}

	ch := cfg.Channel.Channel()
	if err := l.radio.Configure(ch); err != nil {
		l.Close()
		return nil, fmt.Errorf("configure channel: %w", err)
	}
	log.Printf("%s configured for %s", l.deviceLabel(), ch)

	var sinks []capture.Sink
	if cfg.Trace != "" {
		f, err := os.Create(cfg.Trace)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("create trace file: %w", err)
		}
		sink, err := capture.NewPcapSink(f)
		if err != nil {
			f.Close()
			l.Close()
			return nil, err
		}
		l.closers = append(l.closers, func() error {
			err := sink.Flush()
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			return err
		})
		sinks = append(sinks, sink)
	}
	if cfg.DB != "" {
		store, err := tracedb.Open(cfg.DB)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("open trace db: %w", err)
		}
		l.store = store
		l.closers = append(l.closers, store.Close)

		sess, err := store.BeginSession(l.deviceLabel(), ch)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("begin session: %w", err)
		}
		l.session = sess
		l.closers = append(l.closers, sess.End)
		sinks = append(sinks, sess)
		log.Printf("recording session %s", sess.ID())
	}

	l.tr = l.radio
	if len(sinks) > 0 || cfg.Listen != "" {
		l.wrapper = capture.Wrap[backend](l.radio, capture.MultiSink(sinks...))
		l.tr = l.wrapper
	}

	if cfg.Listen != "" {
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address: cfg.Listen,
			Device:  l.deviceLabel(),
			Channel: ch,
			Source:  l.wrapper,
			DB:      l.store,
		})
		log.Printf("monitor listening on %s", cfg.Listen)
		go func() {
			if err := ws.Start(ctx); err != nil {
				log.Printf("monitor server: %v", err)
			}
		}()
	}

	return l, nil
}

// Close tears the stack down in reverse construction order, so the trace
// session ends before its store closes and the port closes last.
func (l *link) Close() error {
	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	l.closers = nil
	return errors.Join(errs...)
}
