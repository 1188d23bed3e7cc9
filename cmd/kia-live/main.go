// Command kia-live is the service entrypoint: a cobra root command
// whose default action starts the full ingestion daemon (scheduler +
// receiver/poller + downstream HTTP surface + static-bundle builder),
// plus debug subcommands for operators. Grounded on the teacher's
// cmd/main.go cobra wiring, adapted from a one-shot CLI tool to a
// long-running daemon.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trinityinblue/kia-live/internal/config"
	"github.com/trinityinblue/kia-live/internal/feed"
	"github.com/trinityinblue/kia-live/internal/fetcher"
	"github.com/trinityinblue/kia-live/internal/httpapi"
	"github.com/trinityinblue/kia-live/internal/inputs"
	"github.com/trinityinblue/kia-live/internal/poller"
	"github.com/trinityinblue/kia-live/internal/scheduler"
	"github.com/trinityinblue/kia-live/internal/state"
	"github.com/trinityinblue/kia-live/internal/staticbuild"
	"github.com/trinityinblue/kia-live/internal/transform"
	"github.com/trinityinblue/kia-live/storage"
)

var rootCmd = &cobra.Command{
	Use:          "kia-live",
	Short:        "BMTC live-data GTFS ingestion engine",
	Long:         "Polls the BMTC live-data API and serves a GTFS Realtime feed alongside a matching GTFS Static bundle.",
	SilenceUsage: true,
	RunE:         serve,
}

var (
	bindHost     string
	bindPort     int
	dataDir      string
	sqlitePath   string
	timezoneName string
	inputCache   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&bindHost, "bind", config.DefaultBindHost, "HTTP bind host")
	rootCmd.PersistentFlags().IntVar(&bindPort, "port", config.DefaultPort, "HTTP bind port")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".", "directory holding the curated input JSON files")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "optional path to a SQLite database for persisted state (blank disables persistence)")
	rootCmd.PersistentFlags().StringVar(&timezoneName, "timezone", "Asia/Kolkata", "IANA timezone the upstream feed's clock times are anchored to")
	rootCmd.PersistentFlags().StringVar(&inputCache, "input-cache", "", "optional path to an on-disk cache for remotely-fetched input files (blank caches in memory only)")

	rootCmd.AddCommand(schedulePreviewCmd)
	rootCmd.AddCommand(routesCSVCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// inputPaths resolves the six curated input files to fixed filenames
// under --data-dir, matching the names given in §6.
func inputPaths() inputs.Paths {
	join := func(name string) string {
		if dataDir == "" {
			return name
		}
		return dataDir + "/" + name
	}
	return inputs.Paths{
		ClientStops:    join("client_stops.json"),
		RoutesChildren: join("routes_children_ids.json"),
		RoutesParent:   join("routes_parent_ids.json"),
		StartTimes:     join("start_times.json"),
		RouteLines:     join("routelines.json"),
		Times:          join("times.json"),
	}
}

// newInputLoader builds the curated-input Loader, backed by an
// on-disk cache when --input-cache is set and an in-memory one
// otherwise.
func newInputLoader() (*inputs.Loader, error) {
	if inputCache == "" {
		return inputs.NewLoader(), nil
	}
	return inputs.NewLoaderWithDiskCache(inputCache)
}

func loadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(timezoneName)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezoneName, err)
	}
	return loc, nil
}

func openStore() (storage.Store, error) {
	if sqlitePath == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewSQLiteStore(sqlitePath)
}

// serve is the root command's default action: it wires together every
// component named in §4 and runs until interrupted.
func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	loc, err := loadLocation()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loader, err := newInputLoader()
	if err != nil {
		return err
	}
	in, err := loader.Load(ctx, inputPaths())
	if err != nil {
		return fmt.Errorf("loading input files: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	timings := state.NewRouteTimings()
	children, parents, startTimes := inputs.RouteTimings(in)
	timings.Replace(children, parents, startTimes)

	queue := state.NewTimingQueue()
	sched := scheduler.New(timings, queue, cfg.QueryInterval, cfg.QueryAmount)

	f := fetcher.New(cfg.UpstreamBaseURL)
	transformer := transform.New(loc)
	publisher := feed.New()
	sink := storage.NewSink(store)
	receiver := poller.New(queue, timings, f, transformer, publisher, sink)

	bundlePublisher := staticbuild.NewPublisher()
	if err := buildAndPublishBundle(in, bundlePublisher, store); err != nil {
		fmt.Printf("kia-live: initial static bundle build failed: %v\n", err)
	}

	server := httpapi.New(bindHost, bindPort, publisher, bundlePublisher)

	go sched.Run(ctx)
	go receiver.Run(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			fmt.Printf("kia-live: http server stopped: %v\n", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func buildAndPublishBundle(in staticbuild.Input, pub *staticbuild.Publisher, store storage.Store) error {
	bundle, err := staticbuild.Build(in, time.Now())
	if err != nil {
		return fmt.Errorf("building static bundle: %w", err)
	}
	if err := pub.Replace(bundle); err != nil {
		return fmt.Errorf("publishing static bundle: %w", err)
	}
	version, _ := pub.Version()
	data, _ := pub.Bytes()
	sum := sha256.Sum256(data)
	return store.SaveBundleMetadata(storage.BundleMetadata{
		Version: version,
		SHA256:  hex.EncodeToString(sum[:]),
		BuiltAt: time.Now(),
	})
}
