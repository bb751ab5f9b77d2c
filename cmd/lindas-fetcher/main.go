package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gfroerli/lindas-foen-fetcher"
)

const (
	exitFatal          = 1
	exitStationsFailed = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runCommand(args)
	case "validate":
		err = validateCommand(args)
	case "stats":
		err = statsCommand(args)
	case "help":
		printUsage()
		return 0
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, lindasfetcher.ErrStationsFailed):
		fmt.Fprintf(os.Stderr, "lindas-fetcher %s: %v\n", cmd, err)
		return exitStationsFailed
	default:
		fmt.Fprintf(os.Stderr, "lindas-fetcher %s: %v\n", cmd, err)
		return exitFatal
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.toml", "Path to configuration file")
	dryRun := fs.Bool("dry-run", false, "Query and deduplicate, but log payloads instead of sending them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := lindasfetcher.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []lindasfetcher.StreamOutOption
	if *dryRun {
		opts = append(opts, lindasfetcher.StreamOutDryRun())
	}
	return flow.Run(ctx, opts...)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.toml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := lindasfetcher.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good: %d station(s), mode %s, ledger %s\n",
		*cfgPath, len(cfg.Stations), cfg.Run.Mode, cfg.Database.Driver)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(ctx, *url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsTargets = []string{
	"lindas_stations_forwarded_total",
	"lindas_stations_duplicate_total",
	"lindas_stations_failed_total",
	"lindas_cycles_total",
	"lindas_last_cycle_failed_stations",
}

func printMetricsSnapshot(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values := make(map[string]float64, len(statsTargets))
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range statsTargets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					values[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] cycles=%.0f forwarded=%.0f duplicates=%.0f failed=%.0f last_cycle_failed=%.0f\n",
		time.Now().Format(time.RFC3339),
		values["lindas_cycles_total"],
		values["lindas_stations_forwarded_total"],
		values["lindas_stations_duplicate_total"],
		values["lindas_stations_failed_total"],
		values["lindas_last_cycle_failed_stations"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`lindas-fetcher

Forwards the latest FOEN water temperatures from LINDAS to the Gfrörli API.

Usage:
  lindas-fetcher [command] [flags]

Commands:
  run        Run the configured schedule (default)
  validate   Load and validate a config file without contacting any service
  stats      Poll the Prometheus endpoint of a running loop instance

Exit codes:
  0  success
  1  fatal error (configuration, ledger, setup)
  2  oneshot run in which at least one station failed

Examples:
  lindas-fetcher -config config.toml
  lindas-fetcher run -config config.toml -dry-run
  lindas-fetcher validate -config config.toml
  lindas-fetcher stats -url http://localhost:9100/metrics -interval 5s
`)
}
