package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/radiohal/blocking"
	"github.com/banshee-data/radiohal/radio"
)

var rxCount int

var rxCmd = &cobra.Command{
	Use:   "rx",
	Short: "Receive packets",
	Long: `Rx opens the receiver and prints every packet with its signal
readings, reopening the window after each packet or expiry. It runs until
interrupted, or until --count packets have arrived.`,
	Args: cobra.NoArgs,
	RunE: runRx,
}

func init() {
	rxCmd.Flags().IntVar(&rxCount, "count", 0, "Stop after this many packets (0 runs until interrupted)")
	rootCmd.AddCommand(rxCmd)
}

func runRx(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := openLink(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	received := 0
	for rxCount == 0 || received < rxCount {
		payload, info, err := blocking.Receive(ctx, l.tr, l.poll())
		switch {
		case err == nil:
			received++
			ts := info.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			fmt.Printf("%s  %3d bytes  rssi %4d  lqi %3d  %x\n",
				ts.Format("15:04:05.000"), len(payload), info.RSSI, info.LQI, payload)
		case ctx.Err() != nil:
			log.Printf("received %d packets", received)
			return nil
		case radio.IsKind(err, radio.KindTimeout):
			// The window expired without traffic; reopen it.
		default:
			return err
		}
	}
	log.Printf("received %d packets", received)
	return nil
}
