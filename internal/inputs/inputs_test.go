package inputs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trinityinblue/kia-live/internal/inputs"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromLocalFiles(t *testing.T) {
	paths := inputs.Paths{
		ClientStops: writeTempFile(t, "client_stops.json", `{
			"1_UP": {"stops": [{"name": "A", "loc": [12.9, 77.6], "distance": 0}]}
		}`),
		RoutesChildren: writeTempFile(t, "routes_children_ids.json", `{"1_UP": 101}`),
		RoutesParent:   writeTempFile(t, "routes_parent_ids.json", `{"1_UP": 100}`),
		StartTimes:     writeTempFile(t, "start_times.json", `{"1_UP": [{"start": 450, "duration": 60}]}`),
		RouteLines:     writeTempFile(t, "routelines.json", `{"1_UP": "_p~iF~ps|U"}`),
	}

	loader := inputs.NewLoader()
	in, err := loader.Load(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, int64(101), in.RoutesChildren["1_UP"])
	assert.Equal(t, int64(100), in.RoutesParent["1_UP"])
	require.Len(t, in.StartTimes["1_UP"], 1)
	assert.Equal(t, 450, in.StartTimes["1_UP"][0].Start)
	assert.Equal(t, "_p~iF~ps|U", in.RouteLines["1_UP"])
	require.Len(t, in.ClientStops["1_UP"].Stops, 1)
}

func TestLoadSkipsBlankTimesPath(t *testing.T) {
	paths := inputs.Paths{
		ClientStops:    writeTempFile(t, "client_stops.json", `{}`),
		RoutesChildren: writeTempFile(t, "routes_children_ids.json", `{}`),
		RoutesParent:   writeTempFile(t, "routes_parent_ids.json", `{}`),
		StartTimes:     writeTempFile(t, "start_times.json", `{}`),
		RouteLines:     writeTempFile(t, "routelines.json", `{}`),
	}

	loader := inputs.NewLoader()
	in, err := loader.Load(context.Background(), paths)
	require.NoError(t, err)
	assert.Nil(t, in.Times)
}

func TestLoadFromHTTPURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"1_UP": 101}`))
	}))
	defer srv.Close()

	paths := inputs.Paths{
		ClientStops:    writeTempFile(t, "client_stops.json", `{}`),
		RoutesChildren: srv.URL,
		RoutesParent:   writeTempFile(t, "routes_parent_ids.json", `{}`),
		StartTimes:     writeTempFile(t, "start_times.json", `{}`),
		RouteLines:     writeTempFile(t, "routelines.json", `{}`),
	}

	loader := inputs.NewLoader()
	in, err := loader.Load(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, int64(101), in.RoutesChildren["1_UP"])
}

func TestLoadFromHTTPURLWithDiskCacheSurvivesReload(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"1_UP": 101}`))
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "cache.json")
	paths := inputs.Paths{
		ClientStops:    writeTempFile(t, "client_stops.json", `{}`),
		RoutesChildren: srv.URL,
		RoutesParent:   writeTempFile(t, "routes_parent_ids.json", `{}`),
		StartTimes:     writeTempFile(t, "start_times.json", `{}`),
		RouteLines:     writeTempFile(t, "routelines.json", `{}`),
	}

	loader, err := inputs.NewLoaderWithDiskCache(cachePath)
	require.NoError(t, err)
	in, err := loader.Load(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, int64(101), in.RoutesChildren["1_UP"])
	assert.Equal(t, 1, hits)

	reloaded, err := inputs.NewLoaderWithDiskCache(cachePath)
	require.NoError(t, err)
	in, err = reloaded.Load(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, int64(101), in.RoutesChildren["1_UP"])
	assert.Equal(t, 1, hits, "second loader should reuse the on-disk cache instead of re-fetching")
}

func TestRouteTimingsTranslatesTripStartTimes(t *testing.T) {
	paths := inputs.Paths{
		ClientStops:    writeTempFile(t, "client_stops.json", `{}`),
		RoutesChildren: writeTempFile(t, "routes_children_ids.json", `{"1_UP": 101}`),
		RoutesParent:   writeTempFile(t, "routes_parent_ids.json", `{"1_UP": 100}`),
		StartTimes:     writeTempFile(t, "start_times.json", `{"1_UP": [{"start": 450, "duration": 60}]}`),
		RouteLines:     writeTempFile(t, "routelines.json", `{}`),
	}

	loader := inputs.NewLoader()
	in, err := loader.Load(context.Background(), paths)
	require.NoError(t, err)

	children, parents, startTimes := inputs.RouteTimings(in)
	assert.Equal(t, int64(101), children["1_UP"])
	assert.Equal(t, int64(100), parents["1_UP"])
	require.Len(t, startTimes["1_UP"], 1)
	assert.Equal(t, 450, startTimes["1_UP"][0].Start)
	assert.Equal(t, 60, startTimes["1_UP"][0].Duration)
}
