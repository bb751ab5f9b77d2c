package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gfroerli/lindas-foen-fetcher/pkg/lindasfetcher"
)

func main() {
	flow, err := lindasfetcher.Conf("../../config.toml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(_ context.Context, m lindasfetcher.Measurement, sensorID uint32) error {
		fmt.Printf("%s station=%d (%s) sensor=%d temperature=%.2f\n",
			m.Time.Format(time.RFC3339),
			m.StationID,
			m.StationName,
			sensorID,
			m.Temperature,
		)
		return nil
	}

	if err := flow.Run(ctx, lindasfetcher.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
