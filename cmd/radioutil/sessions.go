package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/radiohal/tracedb"
)

var sessionID string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded trace sessions",
	Long: `Sessions lists the runs recorded in the trace database with their
device, channel and packet counts. With --id it shows the per-direction
packet and signal statistics of one session instead.`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionID, "id", "", "Show one session's per-direction statistics")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DB == "" {
		return fmt.Errorf("no trace database; use --db <file>")
	}

	store, err := tracedb.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	if sessionID != "" {
		stats, err := store.SessionStats(sessionID)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("no packets recorded")
			return nil
		}
		for _, ds := range stats {
			fmt.Printf("%-8s %6d packets %8d bytes  rssi mean %6.1f range %d to %d  lqi mean %5.1f\n",
				ds.Direction, ds.Packets, ds.Bytes, ds.MeanRSSI, ds.MinRSSI, ds.MaxRSSI, ds.MeanLQI)
		}
		return nil
	}

	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}
	for _, s := range sessions {
		end := "open"
		if !s.EndedAt.IsZero() {
			end = s.EndedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-12s %7d packets  %s  %s .. %s\n",
			s.ID, s.Device, s.Packets, s.Channel, s.StartedAt.Format(time.RFC3339), end)
	}
	return nil
}
