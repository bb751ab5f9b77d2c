package ports

import "time"

type Schedule struct {
	Mode     string // "oneshot", "loop"
	Interval time.Duration
	DryRun   bool
}
