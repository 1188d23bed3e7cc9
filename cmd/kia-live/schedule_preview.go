package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trinityinblue/kia-live/internal/config"
	"github.com/trinityinblue/kia-live/internal/inputs"
	"github.com/trinityinblue/kia-live/internal/jobs"
)

var schedulePreviewCmd = &cobra.Command{
	Use:   "schedule-preview <route_key>",
	Short: "Prints the polling fan-out a single route_key would produce, without starting pollers",
	Args:  cobra.ExactArgs(1),
	RunE:  schedulePreview,
}

func schedulePreview(cmd *cobra.Command, args []string) error {
	routeKey := args[0]

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	loader, err := newInputLoader()
	if err != nil {
		return err
	}
	in, err := loader.Load(context.Background(), inputPaths())
	if err != nil {
		return fmt.Errorf("loading input files: %w", err)
	}

	children, parents, startTimes := inputs.RouteTimings(in)
	if _, ok := startTimes[routeKey]; !ok {
		return fmt.Errorf("route_key %q not found in start_times", routeKey)
	}

	now := time.Now()
	candidates := jobs.Build(children, parents, startTimes, now)

	found := false
	for _, job := range candidates {
		if job.RouteID != fmt.Sprint(children[routeKey]) {
			continue
		}
		found = true
		fmt.Printf("trip_id=%s parent_id=%d trip_time=%s\n", job.TripID, job.ParentID, job.TripTime.Format(time.RFC3339))
		for offset := -cfg.QueryAmount; offset <= cfg.QueryAmount; offset++ {
			fireTime := job.TripTime.Add(time.Duration(offset) * cfg.QueryInterval)
			fmt.Printf("  fire_time=%s (offset=%d)\n", fireTime.Format(time.RFC3339), offset)
		}
	}

	if !found {
		fmt.Printf("no trips scheduled for route_key %q\n", routeKey)
	}

	return nil
}
