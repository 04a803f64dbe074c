package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/radiohal/blocking"
)

var (
	txCount int
	txGap   time.Duration
	txHex   bool
)

var txCmd = &cobra.Command{
	Use:   "tx <payload>",
	Short: "Transmit a packet",
	Long: `Tx sends the payload and waits for the radio to report completion.
With --count the packet repeats with a pause between copies. --hex treats
the payload as hex digits instead of literal bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: runTx,
}

func init() {
	txCmd.Flags().IntVar(&txCount, "count", 1, "Number of copies to send")
	txCmd.Flags().DurationVar(&txGap, "gap", 100*time.Millisecond, "Pause between copies")
	txCmd.Flags().BoolVar(&txHex, "hex", false, "Treat the payload as hex digits")
	rootCmd.AddCommand(txCmd)
}

// parsePayload turns the command line argument into the bytes to send.
// Hex payloads may use spaces or colons between bytes.
func parsePayload(arg string, isHex bool) ([]byte, error) {
	if !isHex {
		return []byte(arg), nil
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':':
			return -1
		}
		return r
	}, arg)
	payload, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("parse hex payload: %w", err)
	}
	return payload, nil
}

func runTx(cmd *cobra.Command, args []string) error {
	payload, err := parsePayload(args[0], txHex)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return fmt.Errorf("payload is empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := openLink(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	for i := 0; i < txCount; i++ {
		if i > 0 && txGap > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(txGap):
			}
		}
		if err := blocking.Transmit(ctx, l.tr, payload, l.poll()); err != nil {
			return fmt.Errorf("transmit %d/%d: %w", i+1, txCount, err)
		}
		log.Printf("sent %d bytes (%d/%d)", len(payload), i+1, txCount)
	}
	return nil
}
