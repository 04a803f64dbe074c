package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/radiohal/linktest"
)

var (
	echoAppendInfo bool
	echoDelay      time.Duration
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Run an echo responder",
	Long: `Echo retransmits every received packet until interrupted, giving a
remote ping something to answer it. With --append-info each reply carries
the local signal reading so the pinging side can report both directions.`,
	Args: cobra.NoArgs,
	RunE: runEcho,
}

func init() {
	echoCmd.Flags().BoolVar(&echoAppendInfo, "append-info", true, "Append the local RSSI to each reply")
	echoCmd.Flags().DurationVar(&echoDelay, "delay", 0, "Pause before each reply")
	rootCmd.AddCommand(echoCmd)
}

func runEcho(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := openLink(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	ecfg := linktest.EchoConfig{
		AppendInfo: l.cfg.Echo.AppendInfo,
		Delay:      l.cfg.Echo.Delay,
	}
	if cmd.Flags().Changed("append-info") {
		ecfg.AppendInfo = echoAppendInfo
	}
	if cmd.Flags().Changed("delay") {
		ecfg.Delay = echoDelay
	}

	log.Printf("echo responder up on %s", l.deviceLabel())
	count, err := linktest.Echo(ctx, l.tr, ecfg, linktest.Options{Poll: l.poll(), Logf: log.Printf})
	if err != nil {
		return err
	}
	log.Printf("echoed %d packets", count)
	return nil
}
