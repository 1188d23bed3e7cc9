// Package staticbuild synthesizes the static GTFS bundle (agency,
// feed_info, calendar, routes, shapes, stops, trips, stop_times,
// translations) from the curated input files named in the spec's
// External Interfaces section. This is the out-of-scope "input-file
// loader and static-bundle builder" collaborator: the ingestion core
// only depends on it through the httpapi.BundleSource interface.
// Grounded on the original service's local_file_service/gtfs_builder.py
// and src/shared/utils.py, translated into the teacher's CSV/zip idiom
// (gocarina/gocsv + archive/zip in place of Python's hand-rolled CSV
// writer).
package staticbuild

import (
	"archive/zip"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/trinityinblue/kia-live/internal/tripid"
	"github.com/trinityinblue/kia-live/model"
)

var errPolylineTruncated = errors.New("truncated polyline encoding")

const (
	agencyID  = "BMTC"
	serviceID = "ALL"
)

// ClientStop is one stop entry as curated in client_stops.json.
type ClientStop struct {
	Name      string  `json:"name"`
	NameLocal string  `json:"name_kn"`
	Loc       [2]float64 `json:"loc"`
	Distance  float64 `json:"distance"`
	StopID    string  `json:"stop_id,omitempty"`
}

// ClientStopsEntry is one route_key's value in client_stops.json.
type ClientStopsEntry struct {
	Stops []ClientStop `json:"stops"`
}

// TripStartTime mirrors one entry of start_times.json.
type TripStartTime struct {
	Start    int `json:"start"`
	Duration int `json:"duration"`
}

// PrecomputedTrip mirrors one entry of times.json: an operator-supplied
// trip with exact per-stop departure offsets, used in place of
// distance-based interpolation when present.
type PrecomputedTrip struct {
	Duration int   `json:"duration"`
	Stops    []int `json:"stops"` // HHMM per stop, in the route's distance-sorted order
}

// Input bundles the curated input files named in the spec.
type Input struct {
	ClientStops    map[string]ClientStopsEntry
	RoutesChildren map[string]int64
	RoutesParent   map[string]int64
	StartTimes     map[string][]TripStartTime
	RouteLines     map[string]string // route_key -> URL-encoded polyline
	Times          map[string][]PrecomputedTrip
}

// feedInfo is feed_info.txt's single row; not shared with storage, so
// it lives here rather than in the model package.
type feedInfo struct {
	PublisherName string `csv:"feed_publisher_name"`
	PublisherURL  string `csv:"feed_publisher_url"`
	ContactEmail  string `csv:"feed_contact_email"`
	Lang          string `csv:"feed_lang"`
	Version       string `csv:"feed_version"`
	StartDate     string `csv:"feed_start_date"`
	EndDate       string `csv:"feed_end_date"`
}

// Bundle is one built static GTFS dataset, stamped with the feed
// version it was built under.
type Bundle struct {
	Version      string
	Agency       []model.Agency
	FeedInfo     []feedInfo
	Calendar     []model.Calendar
	Routes       []model.Route
	Shapes       []model.Shape
	Stops        []model.Stop
	Trips        []model.Trip
	StopTimes    []model.StopTime
	Translations []model.Translation
}

// stopPoint is one stop in a route's distance-sorted stop list.
type stopPoint struct {
	stopID   string
	distance float64
	name     string
}

// Build synthesizes a complete Bundle from in.
func Build(in Input, now time.Time) (*Bundle, error) {
	version := hex.EncodeToString(md5Sum(now.Format(time.RFC3339Nano)))[:8]

	stops, stopIDByKey, stopTranslations := buildStops(in.ClientStops)
	routes, routeShapesMap, routeTranslations, err := buildRoutesAndShapes(in)
	if err != nil {
		return nil, fmt.Errorf("building routes and shapes: %w", err)
	}
	trips, stopTimes, tripTranslations, err := buildTripsAndStopTimes(in, stopIDByKey, routeShapesMap.byChildID)
	if err != nil {
		return nil, fmt.Errorf("building trips and stop_times: %w", err)
	}

	translations := make([]model.Translation, 0, len(stopTranslations)+len(routeTranslations)+len(tripTranslations))
	translations = append(translations, stopTranslations...)
	translations = append(translations, routeTranslations.translations...)
	translations = append(translations, tripTranslations...)

	return &Bundle{
		Version: version,
		Agency: []model.Agency{{
			ID:       agencyID,
			Name:     "Bengaluru Metropolitan Transport Corporation",
			URL:      "https://mybmtc.karnataka.gov.in/",
			Timezone: "Asia/Kolkata",
		}},
		FeedInfo: []feedInfo{{
			PublisherName: "kia-live",
			PublisherURL:  "https://github.com/trinityinblue/kia-live",
			ContactEmail:  "hello@example.com",
			Lang:          "en",
			Version:       version,
			StartDate:     now.Format("20060102"),
			EndDate:       now.AddDate(1, 0, 0).Format("20060102"),
		}},
		Calendar: []model.Calendar{{
			ServiceID: serviceID,
			StartDate: now.Format("20060102"),
			EndDate:   now.AddDate(1, 0, 0).Format("20060102"),
			Monday:    1, Tuesday: 1, Wednesday: 1, Thursday: 1, Friday: 1, Saturday: 1, Sunday: 1,
		}},
		Routes:       routes,
		Shapes:       routeShapesMap.shapes,
		Stops:        stops,
		Trips:        trips,
		StopTimes:    stopTimes,
		Translations: translations,
	}, nil
}

func md5Sum(s string) []byte {
	sum := md5.Sum([]byte(s))
	return sum[:]
}

// stopKey identifies a physical stop: by explicit stop_id when the
// curated data supplies one, else by its rounded location and name
// (matching the original's dedup key).
func stopKey(s ClientStop) string {
	if s.StopID != "" {
		return "id:" + s.StopID
	}
	return fmt.Sprintf("loc:%.6f,%.6f,%s", s.Loc[0], s.Loc[1], s.Name)
}

func buildStops(clientStops map[string]ClientStopsEntry) ([]model.Stop, map[string]string, []model.Translation) {
	seen := map[string]bool{}
	idByKey := map[string]string{}
	var stops []model.Stop
	var translations []model.Translation

	routeKeys := sortedKeys(clientStops)
	for _, routeKey := range routeKeys {
		for _, stop := range clientStops[routeKey].Stops {
			key := stopKey(stop)
			if seen[key] {
				continue
			}
			seen[key] = true

			stopID := stop.StopID
			if stopID == "" {
				stopID = fmt.Sprintf("gen_%d", len(stops)+1)
			}
			idByKey[key] = stopID

			stops = append(stops, model.Stop{
				ID:   stopID,
				Name: stop.Name,
				Lat:  stop.Loc[0],
				Lon:  stop.Loc[1],
			})

			if stop.NameLocal != "" {
				translations = append(translations, model.Translation{
					TableName:   "stops",
					FieldName:   "stop_name",
					RecordID:    stopID,
					Language:    "kn",
					Translation: stop.NameLocal,
				})
			}
		}
	}

	return stops, idByKey, translations
}

type routeShapes struct {
	shapes     []model.Shape
	byChildID  map[int64]string
}

type routeTranslationSet struct {
	translations []model.Translation
}

func buildRoutesAndShapes(in Input) ([]model.Route, *routeShapes, routeTranslationSet, error) {
	rs := &routeShapes{byChildID: map[int64]string{}}
	var routes []model.Route
	var translations []model.Translation

	routeKeys := sortedKeys(in.RoutesChildren)
	for _, routeKey := range routeKeys {
		childID := in.RoutesChildren[routeKey]

		if poly, ok := in.RouteLines[routeKey]; ok && poly != "" {
			shapeID := fmt.Sprintf("sh_%d", childID)
			rs.byChildID[childID] = shapeID

			unescaped, err := url.QueryUnescape(poly)
			if err != nil {
				return nil, nil, routeTranslationSet{}, errors.Wrapf(err, "unescaping polyline for %s", routeKey)
			}
			points, err := decodePolyline(unescaped)
			if err != nil {
				return nil, nil, routeTranslationSet{}, errors.Wrapf(err, "decoding polyline for %s", routeKey)
			}
			for i, pt := range points {
				rs.shapes = append(rs.shapes, model.Shape{
					ID:       shapeID,
					Lat:      pt[0],
					Lon:      pt[1],
					Sequence: uint32(i + 1),
				})
			}
		}

		entry, ok := in.ClientStops[routeKey]
		if !ok || len(entry.Stops) == 0 {
			continue
		}

		routeShort := strings.TrimSuffix(strings.TrimSuffix(routeKey, " UP"), " DOWN")
		first, last := entry.Stops[0], entry.Stops[len(entry.Stops)-1]

		routes = append(routes, model.Route{
			ID:        strconv.FormatInt(childID, 10),
			AgencyID:  agencyID,
			ShortName: routeShort,
			LongName:  fmt.Sprintf("%s to %s", first.Name, last.Name),
			Type:      model.RouteTypeBus,
		})

		if first.NameLocal != "" && last.NameLocal != "" {
			translations = append(translations, model.Translation{
				TableName:   "routes",
				FieldName:   "route_long_name",
				RecordID:    strconv.FormatInt(childID, 10),
				Language:    "kn",
				Translation: fmt.Sprintf("%s ಇಂದ %s ಇಗೆ", first.NameLocal, last.NameLocal),
			})
		}
	}

	return routes, rs, routeTranslationSet{translations: translations}, nil
}

func buildTripsAndStopTimes(in Input, stopIDByKey map[string]string, shapesByChildID map[int64]string) ([]model.Trip, []model.StopTime, []model.Translation, error) {
	var trips []model.Trip
	var stopTimes []model.StopTime
	var translations []model.Translation

	routeKeys := make([]string, 0, len(in.StartTimes))
	tripCount := map[string]int{}
	childIDStr := map[string]string{}
	for routeKey, startTimes := range in.StartTimes {
		routeKeys = append(routeKeys, routeKey)
		tripCount[routeKey] = len(startTimes)
		if childID, ok := in.RoutesChildren[routeKey]; ok {
			childIDStr[routeKey] = strconv.FormatInt(childID, 10)
		}
	}
	tripIDsByRouteKey := tripid.Assign(routeKeys, tripCount, childIDStr)

	sortedRouteKeys := sortedKeys(in.StartTimes)
	for _, routeKey := range sortedRouteKeys {
		childID, ok := in.RoutesChildren[routeKey]
		if !ok {
			continue
		}
		entry, ok := in.ClientStops[routeKey]
		if !ok || len(entry.Stops) == 0 {
			continue
		}

		stopPoints := make([]stopPoint, 0, len(entry.Stops))
		for _, s := range entry.Stops {
			id, ok := stopIDByKey[stopKey(s)]
			if !ok {
				continue
			}
			stopPoints = append(stopPoints, stopPoint{stopID: id, distance: s.Distance, name: s.Name})
		}
		sort.Slice(stopPoints, func(i, j int) bool { return stopPoints[i].distance < stopPoints[j].distance })
		if len(stopPoints) == 0 {
			continue
		}

		shapeID := shapesByChildID[childID]

		tripIDs := tripIDsByRouteKey[routeKey]
		precomputed := in.Times[routeKey]
		startTimes := in.StartTimes[routeKey]

		for i, start := range startTimes {
			if i >= len(tripIDs) {
				break
			}
			tripID := tripIDs[i]

			duration := start.Duration
			var times []int
			if i < len(precomputed) && len(precomputed[i].Stops) == len(stopPoints) {
				times = append([]int(nil), precomputed[i].Stops...)
				if precomputed[i].Duration != 0 {
					duration = precomputed[i].Duration
				}
			} else {
				times = interpolateTripTimes(start.Start, duration, stopPoints)
			}

			trips = append(trips, model.Trip{
				ID:        tripID,
				RouteID:   strconv.FormatInt(childID, 10),
				ServiceID: serviceID,
				ShapeID:   shapeID,
				Headsign:  stopPoints[len(stopPoints)-1].name,
			})

			for j, sp := range stopPoints {
				depTime := times[j]
				if j > 0 && times[j-1] == depTime {
					depTime = addTimeTripTimes(depTime, 1)
					times[j] = depTime
				}
				offset := time.Duration(depTime/100)*time.Hour + time.Duration(depTime%100)*time.Minute
				stopTimes = append(stopTimes, model.StopTime{
					TripID:       tripID,
					StopID:       sp.stopID,
					StopSequence: uint32(j + 1),
					Departure:    model.FormatGTFSTime(offset + 10*time.Second),
					Arrival:      model.FormatGTFSTime(offset),
				})
			}

			translations = append(translations, model.Translation{
				TableName:   "trips",
				FieldName:   "trip_headsign",
				RecordID:    tripID,
				Language:    "kn",
				Translation: stopPoints[len(stopPoints)-1].name,
			})
		}
	}

	return trips, stopTimes, translations, nil
}

// addTimeTripTimes adds minutes to an HHMM integer, allowing overflow
// past 2400 to represent trips spanning midnight.
func addTimeTripTimes(start, minutes int) int {
	hours := start / 100
	mins := start % 100
	total := hours*60 + mins + minutes
	return (total/60)*100 + total%60
}

// interpolateTripTimes spreads a trip's total duration across its
// stops proportionally to distance along the route.
func interpolateTripTimes(start, duration int, stops []stopPoint) []int {
	var totalDistance float64
	for _, s := range stops {
		if s.distance > totalDistance {
			totalDistance = s.distance
		}
	}
	out := make([]int, len(stops))
	for i, s := range stops {
		if totalDistance == 0 {
			out[i] = start
			continue
		}
		offset := int(math.Round(float64(duration) * s.distance / totalDistance))
		out[i] = addTimeTripTimes(start, offset)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Zip serializes b into a GTFS zip archive, one CSV file per table.
func (b *Bundle) Zip() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := []struct {
		name string
		rows any
	}{
		{"agency.txt", b.Agency},
		{"feed_info.txt", b.FeedInfo},
		{"calendar.txt", b.Calendar},
		{"routes.txt", b.Routes},
		{"shapes.txt", b.Shapes},
		{"stops.txt", b.Stops},
		{"trips.txt", b.Trips},
		{"stop_times.txt", b.StopTimes},
		{"translations.txt", b.Translations},
	}

	for _, f := range files {
		csvStr, err := gocsv.MarshalString(f.rows)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", f.name, err)
		}
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s in zip: %w", f.name, err)
		}
		if _, err := w.Write([]byte(csvStr)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Publisher holds the most recently built bundle, ready to implement
// httpapi.BundleSource. A zero-value Publisher reports no bundle built.
type Publisher struct {
	mu     sync.RWMutex
	bytes  []byte
	version string
	built  bool
}

func NewPublisher() *Publisher { return &Publisher{} }

// Replace atomically installs a newly built bundle.
func (p *Publisher) Replace(b *Bundle) error {
	data, err := b.Zip()
	if err != nil {
		return fmt.Errorf("zipping bundle: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bytes = data
	p.version = b.Version
	p.built = true
	return nil
}

// Bytes implements httpapi.BundleSource.
func (p *Publisher) Bytes() ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.built {
		return nil, false
	}
	return p.bytes, true
}

// Version implements httpapi.BundleSource.
func (p *Publisher) Version() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.built {
		return "", false
	}
	return p.version, true
}
