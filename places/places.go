package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hikoneportal/transit-api/config"
)

const photoMaxWidth = 800

// Client wraps the Google Geocoding and Places APIs used by the shop
// directory: address-to-coordinate lookups and place photo URLs.
type Client struct {
	baseURL string
	creds   *config.Resolver
	client  *http.Client
}

// NewClient creates a places client against the given Maps base URL
func NewClient(baseURL string, creds *config.Resolver, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
	}
}

// GeocodeResult is the normalized geocoder answer
type GeocodeResult struct {
	Latitude         float64
	Longitude        float64
	PlaceID          string
	FormattedAddress string
}

// StatusError carries a semantic geocoder status like ZERO_RESULTS or
// REQUEST_DENIED. The status string is forwarded to the caller.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// Geocode resolves a free-text address or shop name to coordinates
func (c *Client) Geocode(ctx context.Context, query string) (*GeocodeResult, error) {
	cred, err := c.creds.Resolve(config.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("address", query)
	params.Set("key", cred.Key)
	params.Set("region", "jp")
	params.Set("language", "ja")

	var payload struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Results      []struct {
			PlaceID          string `json:"place_id"`
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "/geocode/json?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	if payload.Status != "OK" || len(payload.Results) == 0 {
		return nil, &StatusError{Status: payload.Status, Message: payload.ErrorMessage}
	}

	result := payload.Results[0]
	return &GeocodeResult{
		Latitude:         result.Geometry.Location.Lat,
		Longitude:        result.Geometry.Location.Lng,
		PlaceID:          result.PlaceID,
		FormattedAddress: result.FormattedAddress,
	}, nil
}

// PlacePhotos returns up to five photo URLs for a place id. A place with
// no photos yields an empty slice, which is a valid answer, not an error.
func (c *Client) PlacePhotos(ctx context.Context, placeID string) ([]string, error) {
	cred, err := c.creds.Resolve(config.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "photos")
	params.Set("key", cred.Key)

	var payload struct {
		Status string `json:"status"`
		Result struct {
			Photos []struct {
				PhotoReference string `json:"photo_reference"`
			} `json:"photos"`
		} `json:"result"`
	}
	if err := c.getJSON(ctx, "/place/details/json?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	if payload.Status != "OK" || len(payload.Result.Photos) == 0 {
		return nil, nil
	}

	photos := payload.Result.Photos
	if len(photos) > 5 {
		photos = photos[:5]
	}
	urls := make([]string, 0, len(photos))
	for _, photo := range photos {
		urls = append(urls, fmt.Sprintf("%s/place/photo?maxwidth=%d&photo_reference=%s&key=%s",
			c.baseURL, photoMaxWidth, photo.PhotoReference, cred.Key))
	}
	return urls, nil
}

func (c *Client) getJSON(ctx context.Context, pathAndQuery string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+pathAndQuery, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
