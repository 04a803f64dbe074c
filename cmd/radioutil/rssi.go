package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/radiohal/linktest"
)

var (
	rssiSamples  int
	rssiInterval time.Duration
)

var rssiCmd = &cobra.Command{
	Use:   "rssi",
	Short: "Survey signal strength",
	Long: `Rssi opens the receiver and samples signal strength on a fixed
interval, printing each reading and a summary at the end. With a sample
count of zero it runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runRSSI,
}

func init() {
	rssiCmd.Flags().IntVar(&rssiSamples, "samples", 0, "Stop after this many samples (0 runs until interrupted)")
	rssiCmd.Flags().DurationVar(&rssiInterval, "interval", 0, "Sampling interval")
	rootCmd.AddCommand(rssiCmd)
}

func runRSSI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := openLink(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	rcfg := linktest.RSSIConfig{
		Interval: l.cfg.RSSI.Interval,
		Samples:  l.cfg.RSSI.Samples,
		OnSample: func(rssi int16) { fmt.Printf("%d dBm\n", rssi) },
	}
	if cmd.Flags().Changed("samples") {
		rcfg.Samples = rssiSamples
	}
	if cmd.Flags().Changed("interval") {
		rcfg.Interval = rssiInterval
	}

	// The survey reads the raw driver: RSSI samples are not packets, so
	// they bypass the capture wrapper.
	stats, err := linktest.PollRSSI(ctx, l.radio, rcfg, linktest.Options{Poll: l.poll()})
	if err != nil {
		return err
	}
	if stats.Count() == 0 {
		fmt.Println("no samples taken")
		return nil
	}
	fmt.Printf("rssi %s\n", stats.String())
	return nil
}
