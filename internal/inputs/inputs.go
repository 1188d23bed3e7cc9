// Package inputs loads the six curated JSON files named in §6 --
// client_stops.json, routes_children_ids.json, routes_parent_ids.json,
// start_times.json, routelines.json and the optional times.json --
// from local disk or, when a path is an http(s) URL, over the network
// with a short-TTL cache. Grounded on the teacher's downloader package
// (downloader.go/filesystem.go/memory.go), adapted from "download and
// cache a GTFS static feed" to "fetch and cache one of this service's
// curated schedule inputs".
package inputs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/trinityinblue/kia-live/downloader"
	"github.com/trinityinblue/kia-live/internal/staticbuild"
	"github.com/trinityinblue/kia-live/internal/state"
)

// Paths names the six input files. Each may be a local filesystem
// path or an http(s) URL; Times may be left blank, since times.json is
// optional per the spec.
type Paths struct {
	ClientStops    string
	RoutesChildren string
	RoutesParent   string
	StartTimes     string
	RouteLines     string
	Times          string
}

// cacheTTL bounds how long a remotely-fetched input is reused before
// a later Load re-fetches it, so a long-running scheduler that
// re-loads inputs daily doesn't needlessly redownload unchanged files
// within the same run.
const cacheTTL = 5 * time.Minute

const fetchTimeout = 30 * time.Second

// Loader fetches and parses the input files.
type Loader struct {
	dl downloader.Downloader
}

// NewLoader builds a Loader that caches remotely-fetched inputs
// in memory for the lifetime of the process.
func NewLoader() *Loader {
	return &Loader{dl: downloader.NewMemory()}
}

// NewLoaderWithDiskCache builds a Loader backed by an on-disk cache
// at cachePath, so a remotely-fetched input (e.g. a routelines.json
// served from a CDN) survives a process restart instead of being
// re-downloaded on every startup.
func NewLoaderWithDiskCache(cachePath string) (*Loader, error) {
	fs, err := downloader.NewFilesystem(cachePath)
	if err != nil {
		return nil, fmt.Errorf("opening input cache: %w", err)
	}
	return &Loader{dl: fs}, nil
}

// Load fetches and parses all configured input files into a
// staticbuild.Input, ready to hand to staticbuild.Build.
func (l *Loader) Load(ctx context.Context, paths Paths) (staticbuild.Input, error) {
	var in staticbuild.Input

	if err := l.loadJSON(ctx, paths.ClientStops, &in.ClientStops); err != nil {
		return staticbuild.Input{}, fmt.Errorf("loading client_stops: %w", err)
	}
	if err := l.loadJSON(ctx, paths.RoutesChildren, &in.RoutesChildren); err != nil {
		return staticbuild.Input{}, fmt.Errorf("loading routes_children_ids: %w", err)
	}
	if err := l.loadJSON(ctx, paths.RoutesParent, &in.RoutesParent); err != nil {
		return staticbuild.Input{}, fmt.Errorf("loading routes_parent_ids: %w", err)
	}
	if err := l.loadJSON(ctx, paths.StartTimes, &in.StartTimes); err != nil {
		return staticbuild.Input{}, fmt.Errorf("loading start_times: %w", err)
	}
	if err := l.loadJSON(ctx, paths.RouteLines, &in.RouteLines); err != nil {
		return staticbuild.Input{}, fmt.Errorf("loading routelines: %w", err)
	}
	if err := l.loadJSON(ctx, paths.Times, &in.Times); err != nil {
		return staticbuild.Input{}, fmt.Errorf("loading times: %w", err)
	}

	return in, nil
}

func (l *Loader) loadJSON(ctx context.Context, pathOrURL string, out any) error {
	if pathOrURL == "" {
		return nil
	}

	raw, err := l.fetch(ctx, pathOrURL)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", pathOrURL, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parsing %s: %w", pathOrURL, err)
	}
	return nil
}

func (l *Loader) fetch(ctx context.Context, pathOrURL string) ([]byte, error) {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return l.dl.Get(ctx, pathOrURL, nil, downloader.GetOptions{
			Cache:    true,
			CacheTTL: cacheTTL,
			Timeout:  fetchTimeout,
		})
	}
	return os.ReadFile(pathOrURL)
}

// RouteTimings extracts the subset of in that the scheduler and
// poller need -- routes_children_ids, routes_parent_ids and
// start_times -- as the types state.RouteTimings.Replace expects.
func RouteTimings(in staticbuild.Input) (
	children map[string]int64,
	parents map[string]int64,
	startTimes map[string][]state.TripStartTime,
) {
	children = in.RoutesChildren
	parents = in.RoutesParent

	startTimes = make(map[string][]state.TripStartTime, len(in.StartTimes))
	for routeKey, trips := range in.StartTimes {
		out := make([]state.TripStartTime, len(trips))
		for i, tt := range trips {
			out[i] = state.TripStartTime{Start: tt.Start, Duration: tt.Duration}
		}
		startTimes[routeKey] = out
	}

	return children, parents, startTimes
}
