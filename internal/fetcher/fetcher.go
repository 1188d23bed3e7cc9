// Package fetcher implements the single upstream call the poller
// makes per parent route: POST .../SearchByRouteDetails_v4 and flatten
// the up/down stop records into one list. Grounded on the same
// http.Client-with-timeout request pattern the teacher's downloader
// package uses for GET, adapted here for a JSON POST body.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

const requestTimeout = 10 * time.Second

var requestHeaders = map[string]string{
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.5",
	"Content-Type":    "application/json",
	"lan":             "en",
	"deviceType":      "WEB",
}

// VehicleDetail is one vehicle's live data for a stop, as returned by
// the upstream API.
type VehicleDetail struct {
	VehicleID           string `json:"vehicleid"`
	VehicleNumber       string `json:"vehiclenumber"`
	SchTripStartTime    string `json:"sch_tripstarttime"`
	SchArrivalTime      string `json:"sch_arrivaltime"`
	SchDepartureTime    string `json:"sch_departuretime"`
	ActualArrivalTime   string `json:"actual_arrivaltime"`
	ActualDepartureTime string `json:"actual_departuretime"`
	CenterLat           string `json:"centerlat"`
	CenterLong          string `json:"centerlong"`
	Heading             string `json:"heading"`
	LastRefreshOn       string `json:"lastrefreshon"`
}

// StopRecord is one stop's entry in the upstream response, carrying
// the vehicles currently reported against it.
type StopRecord struct {
	RouteID         json.Number     `json:"routeid"`
	StationID       string          `json:"stationid"`
	StationName     string          `json:"stationname"`
	VehicleDetails  []VehicleDetail `json:"vehicleDetails"`
}

type directionPayload struct {
	Data []StopRecord `json:"data"`
}

type routeDetailsResponse struct {
	IsSuccess bool             `json:"issuccess"`
	Message   string           `json:"message"`
	Up        directionPayload `json:"up"`
	Down      directionPayload `json:"down"`
}

// Fetcher makes the upstream SearchByRouteDetails_v4 call.
type Fetcher struct {
	BaseURL string
	Client  *http.Client
}

func New(baseURL string) *Fetcher {
	return &Fetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: requestTimeout},
	}
}

// FetchRouteData POSTs {routeid, servicetypeid:0} for the given
// parent_id and returns the flattened up+down stop records. Network
// failures, non-200 responses, unparseable bodies and
// issuccess=false all yield an empty list -- they never propagate as
// errors, matching the spec's "never throw upward" requirement.
func (f *Fetcher) FetchRouteData(ctx context.Context, parentID int64) []StopRecord {
	url := f.BaseURL + "/SearchByRouteDetails_v4"
	body, err := json.Marshal(map[string]any{
		"routeid":       parentID,
		"servicetypeid": 0,
	})
	if err != nil {
		log.Printf("fetcher: marshaling request for parent_id=%d: %v", parentID, err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("fetcher: building request for parent_id=%d: %v", parentID, err)
		return nil
	}
	for k, v := range requestHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		log.Printf("fetcher: request failed for parent_id=%d: %v", parentID, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("fetcher: status %d for parent_id=%d", resp.StatusCode, parentID)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("fetcher: reading body for parent_id=%d: %v", parentID, err)
		return nil
	}

	var parsed routeDetailsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Printf("fetcher: parsing body for parent_id=%d: %v", parentID, err)
		return nil
	}

	if !parsed.IsSuccess {
		log.Printf("fetcher: issuccess=false for parent_id=%d: %s", parentID, parsed.Message)
		return nil
	}

	combined := make([]StopRecord, 0, len(parsed.Up.Data)+len(parsed.Down.Data))
	combined = append(combined, parsed.Up.Data...)
	combined = append(combined, parsed.Down.Data...)
	return combined
}
