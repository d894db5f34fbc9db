// seedgen writes the four synthetic CSV files the service ingests. Run it
// once to produce a data directory for local development.
package main

import (
	"flag"
	"log"

	"pulse_analytics/internal/ingest"
)

func main() {
	dir := flag.String("dir", "data", "output directory for the csv files")
	seed := flag.Int64("seed", 42, "rng seed for the synthetic data")
	flag.Parse()

	tables := ingest.Sample(*seed)
	if err := ingest.WriteDir(*dir, tables); err != nil {
		log.Fatalf("write csv files: %v", err)
	}
	log.Printf("wrote %d customers, %d interventions, %d usage rows, %d tickets to %s",
		len(tables.Customers), len(tables.Interventions), len(tables.Usage), len(tables.SupportTickets), *dir)
}
