package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/devink/campusconnect/internal/logging"
)

// FallbackCities is served whenever the remote lookup fails.
var FallbackCities = []string{"Москва", "Санкт-Петербург", "Новосибирск", "Казань", "Екатеринбург"}

// Source reports where a city list came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// CityLister resolves the list of selectable cities.
type CityLister interface {
	Cities(ctx context.Context) ([]string, Source)
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CityClient queries the Dadata address suggestion API for city names.
type CityClient struct {
	url     string
	apiKey  string
	query   string
	count   int
	http    HTTPDoer
	onFetch func(Source)
}

// CityOption configures a CityClient.
type CityOption func(*CityClient)

// WithHTTPClient overrides the transport.
func WithHTTPClient(c HTTPDoer) CityOption { return func(cc *CityClient) { cc.http = c } }

// WithQuery sets the country used for both the query text and the location filter.
func WithQuery(q string) CityOption { return func(cc *CityClient) { cc.query = q } }

// WithCount caps the number of suggestions requested.
func WithCount(n int) CityOption {
	return func(cc *CityClient) {
		if n > 0 {
			cc.count = n
		}
	}
}

// WithFetchHook is called once per lookup with the source of the result.
func WithFetchHook(fn func(Source)) CityOption { return func(cc *CityClient) { cc.onFetch = fn } }

// NewCityClient builds a client for the suggestion endpoint at url.
func NewCityClient(url, apiKey string, opts ...CityOption) *CityClient {
	c := &CityClient{
		url:    url,
		apiKey: apiKey,
		query:  "Россия",
		count:  100,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type bound struct {
	Value string `json:"value"`
}

type location struct {
	Country string `json:"country"`
}

type suggestRequest struct {
	Query     string     `json:"query"`
	FromBound bound      `json:"from_bound"`
	ToBound   bound      `json:"to_bound"`
	Count     int        `json:"count"`
	Locations []location `json:"locations"`
}

type suggestResponse struct {
	Suggestions []struct {
		Data struct {
			City *string `json:"city"`
		} `json:"data"`
	} `json:"suggestions"`
}

// Cities never fails: lookup errors are logged and FallbackCities is returned.
func (c *CityClient) Cities(ctx context.Context) ([]string, Source) {
	start := time.Now()
	cities, err := c.fetch(ctx)
	if err != nil {
		logging.WarnLog("City lookup failed, using fallback list: %v", err)
		c.report(SourceFallback)
		return append([]string(nil), FallbackCities...), SourceFallback
	}
	logging.InfoLog("City lookup success: %d cities %v", len(cities), time.Since(start))
	c.report(SourceRemote)
	return cities, SourceRemote
}

func (c *CityClient) report(src Source) {
	if c.onFetch != nil {
		c.onFetch(src)
	}
}

func (c *CityClient) fetch(ctx context.Context) ([]string, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("no api key configured")
	}

	body, err := json.Marshal(suggestRequest{
		Query:     c.query,
		FromBound: bound{Value: "city"},
		ToBound:   bound{Value: "city"},
		Count:     c.count,
		Locations: []location{{Country: c.query}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload suggestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Suggestions == nil {
		return nil, fmt.Errorf("response has no suggestions array")
	}

	return uniqueSorted(payload), nil
}

func uniqueSorted(payload suggestResponse) []string {
	seen := make(map[string]struct{}, len(payload.Suggestions))
	out := make([]string, 0, len(payload.Suggestions))
	for _, s := range payload.Suggestions {
		if s.Data.City == nil || *s.Data.City == "" {
			continue
		}
		city := *s.Data.City
		if _, dup := seen[city]; dup {
			continue
		}
		seen[city] = struct{}{}
		out = append(out, city)
	}
	sort.Strings(out)
	return out
}
