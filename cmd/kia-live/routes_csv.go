package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/trinityinblue/kia-live/internal/inputs"
)

var routesCSVCmd = &cobra.Command{
	Use:   "routes-csv",
	Short: "Prints a CSV summary of every route_key known to the configured input files",
	RunE:  routesCSV,
}

type routeSummaryRow struct {
	RouteKey string `csv:"route_key"`
	ChildID  int64  `csv:"child_id"`
	ParentID int64  `csv:"parent_id"`
	NumTrips int    `csv:"num_trips"`
}

func routesCSV(cmd *cobra.Command, args []string) error {
	loader, err := newInputLoader()
	if err != nil {
		return err
	}
	in, err := loader.Load(context.Background(), inputPaths())
	if err != nil {
		return fmt.Errorf("loading input files: %w", err)
	}

	children, parents, startTimes := inputs.RouteTimings(in)

	routeKeys := make([]string, 0, len(startTimes))
	for routeKey := range startTimes {
		routeKeys = append(routeKeys, routeKey)
	}
	sort.Strings(routeKeys)

	rows := make([]routeSummaryRow, 0, len(routeKeys))
	for _, routeKey := range routeKeys {
		rows = append(rows, routeSummaryRow{
			RouteKey: routeKey,
			ChildID:  children[routeKey],
			ParentID: parents[routeKey],
			NumTrips: len(startTimes[routeKey]),
		})
	}

	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return fmt.Errorf("marshaling csv: %w", err)
	}

	fmt.Print(out)
	return nil
}
