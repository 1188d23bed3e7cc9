package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBundleSource struct {
	data    []byte
	version string
	ok      bool
}

func (f fakeBundleSource) Bytes() ([]byte, bool)    { return f.data, f.ok }
func (f fakeBundleSource) Version() (string, bool)  { return f.version, f.ok }

type fakeFeedSource struct {
	data []byte
	err  error
}

func (f fakeFeedSource) Bytes() ([]byte, error) { return f.data, f.err }

func TestHandleStaticBundleServesZipWhenBuilt(t *testing.T) {
	s := New("127.0.0.1", 0, fakeFeedSource{}, fakeBundleSource{data: []byte("zipdata"), ok: true})

	req := httptest.NewRequest(http.MethodGet, "/gtfs.zip", nil)
	rec := httptest.NewRecorder()
	s.handleStaticBundle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "zipdata", rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
}

func TestHandleStaticBundleReturns404BeforeFirstBuild(t *testing.T) {
	s := New("127.0.0.1", 0, fakeFeedSource{}, fakeBundleSource{ok: false})

	req := httptest.NewRequest(http.MethodGet, "/gtfs.zip", nil)
	rec := httptest.NewRecorder()
	s.handleStaticBundle(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRealtimeFeedServesBytes(t *testing.T) {
	s := New("127.0.0.1", 0, fakeFeedSource{data: []byte("feeddata")}, fakeBundleSource{})

	req := httptest.NewRequest(http.MethodGet, "/gtfs-rt.proto", nil)
	rec := httptest.NewRecorder()
	s.handleRealtimeFeed(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "feeddata", rec.Body.String())
	assert.Equal(t, "application/x-protobuf", rec.Header().Get("Content-Type"))
}

func TestHandleVersionReturnsJSONWhenAvailable(t *testing.T) {
	s := New("127.0.0.1", 0, fakeFeedSource{}, fakeBundleSource{version: "20260101T000000Z", ok: true})

	req := httptest.NewRequest(http.MethodGet, "/gtfs-version", nil)
	rec := httptest.NewRecorder()
	s.handleVersion(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":"20260101T000000Z"}`, rec.Body.String())
}

func TestHandleVersionReturns404BeforeFirstBuild(t *testing.T) {
	s := New("127.0.0.1", 0, fakeFeedSource{}, fakeBundleSource{ok: false})

	req := httptest.NewRequest(http.MethodGet, "/gtfs-version", nil)
	rec := httptest.NewRecorder()
	s.handleVersion(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWithCORSAnswersPreflightAndAddsHeader(t *testing.T) {
	s := New("127.0.0.1", 0, fakeFeedSource{}, fakeBundleSource{})
	mux := http.NewServeMux()
	mux.HandleFunc("/gtfs-version", s.handleVersion)
	handler := s.withCORS(mux)

	req := httptest.NewRequest(http.MethodOptions, "/gtfs-version", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
