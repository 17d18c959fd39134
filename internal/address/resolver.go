package address

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Locator returns the device's current position. ok=false means no position
// is available (location services off, permission denied).
type Locator func(ctx context.Context) (lat, lon float64, ok bool)

// Resolver supplies a best-effort initial delivery address. Failures yield
// an empty string so the user can type one in; they never block checkout.
type Resolver interface {
	CurrentAddress(ctx context.Context) string
}

// GeoResolver reverse-geocodes the device position against a
// nominatim-compatible endpoint.
type GeoResolver struct {
	baseURL string
	locate  Locator
	client  *http.Client
}

func NewGeoResolver(baseURL string, locate Locator) *GeoResolver {
	return &GeoResolver{
		baseURL: baseURL,
		locate:  locate,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *GeoResolver) CurrentAddress(ctx context.Context) string {
	lat, lon, ok := r.locate(ctx)
	if !ok {
		return ""
	}

	url := fmt.Sprintf("%s/reverse?lat=%f&lon=%f&format=json", r.baseURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("[Address] Reverse geocode failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Address] Reverse geocode returned status %d", resp.StatusCode)
		return ""
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("[Address] Malformed reverse geocode response: %v", err)
		return ""
	}
	return body.DisplayName
}

// Static always returns the same address. Used when no locator is wired.
type Static string

func (s Static) CurrentAddress(ctx context.Context) string { return string(s) }
