package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/radiohal/linktest"
)

var (
	pingRounds  int
	pingTimeout time.Duration
	pingGap     time.Duration
	pingRemote  bool
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Round-trip ping through an echo responder",
	Long: `Ping sends numbered packets and waits for each to come back,
reporting loss and signal statistics at the end. Point it at a radio
running the echo command; with --remote-rssi the report also shows how
the far side heard each packet.`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	pingCmd.Flags().IntVarP(&pingRounds, "rounds", "n", 0, "Number of rounds to send")
	pingCmd.Flags().DurationVar(&pingTimeout, "reply-timeout", 0, "How long to wait for each reply")
	pingCmd.Flags().DurationVar(&pingGap, "gap", 0, "Pause between rounds")
	pingCmd.Flags().BoolVar(&pingRemote, "remote-rssi", false, "Parse the remote RSSI appended by the echo responder")
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := openLink(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	pcfg := linktest.PingConfig{
		Rounds:       l.cfg.Ping.Rounds,
		ReplyTimeout: l.cfg.Ping.ReplyTimeout,
		Gap:          l.cfg.Ping.Gap,
		ParseInfo:    pingRemote,
	}
	if cmd.Flags().Changed("rounds") {
		pcfg.Rounds = pingRounds
	}
	if cmd.Flags().Changed("reply-timeout") {
		pcfg.ReplyTimeout = pingTimeout
	}
	if cmd.Flags().Changed("gap") {
		pcfg.Gap = pingGap
	}

	rep, err := linktest.PingPong(ctx, l.tr, pcfg, linktest.Options{Poll: l.poll(), Logf: log.Printf})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Printf("%d sent, %d received, %.1f%% loss\n", rep.Sent, rep.Received, rep.Loss()*100)
	if rep.LocalRSSI.Count() > 0 {
		fmt.Printf("local rssi:  %s\n", rep.LocalRSSI.String())
	}
	if rep.RemoteRSSI.Count() > 0 {
		fmt.Printf("remote rssi: %s\n", rep.RemoteRSSI.String())
	}
	return nil
}
