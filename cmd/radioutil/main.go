// Radioutil exercises a packet radio link end to end: one-shot transmits
// and receives, RSSI surveys, an echo responder and a round-trip ping with
// loss statistics. Every command can stream its packets into a pcapng file
// or a SQLite trace database and serve a live monitor over HTTP.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
