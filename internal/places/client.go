package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const httpTimeout = 10 * time.Second

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// doGet performs a GET request and decodes the JSON response into dst.
// The API key is never part of the returned error.
func doGet(ctx context.Context, client *http.Client, endpoint string, query url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", endpoint, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		// *url.Error carries the full URL, query string included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}

	return nil
}

// POIClient looks up places from OpenTripMap.
type POIClient struct {
	apiKey     string
	geoBaseURL string
	poiBaseURL string
	client     *http.Client
}

const (
	otmGeoDefault = "https://api.opentripmap.com/0.1/en/places/geoname"
	otmPOIDefault = "https://api.opentripmap.com/0.1/en/places/radius"

	searchRadiusMeters = 5000
)

// NewPOIClient constructs a POIClient with the given API key.
func NewPOIClient(apiKey string) *POIClient {
	return NewPOIClientWithURLs(otmGeoDefault, otmPOIDefault, apiKey)
}

// NewPOIClientWithURLs constructs a POIClient pointing at custom URLs (for tests).
func NewPOIClientWithURLs(geoBaseURL, poiBaseURL, apiKey string) *POIClient {
	return &POIClient{
		apiKey:     apiKey,
		geoBaseURL: geoBaseURL,
		poiBaseURL: poiBaseURL,
		client:     newHTTPClient(),
	}
}

type otmGeoResponse struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

type otmRadiusResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			XID   string `json:"xid"`
			Name  string `json:"name"`
			Kinds string `json:"kinds"`
			Rate  int    `json:"rate"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves a city name to coordinates.
func (c *POIClient) Geocode(ctx context.Context, city string) (Coordinates, error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("apikey", c.apiKey)

	var geo otmGeoResponse
	if err := doGet(ctx, c.client, c.geoBaseURL, q, &geo); err != nil {
		return Coordinates{}, fmt.Errorf("opentripmap geocode for %s: %w", city, err)
	}
	if geo.Status != "" && geo.Status != "OK" {
		return Coordinates{}, fmt.Errorf("opentripmap geocode for %s: status %s", city, geo.Status)
	}

	return Coordinates{Lat: geo.Lat, Lon: geo.Lon}, nil
}

// Radius lists up to limit named places of the given kind around at.
func (c *POIClient) Radius(ctx context.Context, at Coordinates, kind string, limit int) ([]Candidate, error) {
	q := url.Values{}
	q.Set("radius", fmt.Sprint(searchRadiusMeters))
	q.Set("lon", fmt.Sprintf("%f", at.Lon))
	q.Set("lat", fmt.Sprintf("%f", at.Lat))
	q.Set("kinds", kind)
	q.Set("rate", "2")
	q.Set("limit", fmt.Sprint(limit))
	q.Set("format", "geojson")
	q.Set("apikey", c.apiKey)

	var raw otmRadiusResponse
	if err := doGet(ctx, c.client, c.poiBaseURL, q, &raw); err != nil {
		return nil, fmt.Errorf("opentripmap radius %s: %w", kind, err)
	}

	cands := make([]Candidate, 0, len(raw.Features))
	for _, f := range raw.Features {
		if f.Properties.Name == "" {
			continue
		}
		cand := Candidate{
			ExternalID: f.Properties.XID,
			Name:       f.Properties.Name,
			Kinds:      f.Properties.Kinds,
			Rate:       f.Properties.Rate,
		}
		if len(f.Geometry.Coordinates) == 2 {
			cand.Lon = f.Geometry.Coordinates[0]
			cand.Lat = f.Geometry.Coordinates[1]
		}
		cands = append(cands, cand)
	}

	return cands, nil
}
