// file: internal/catalog/client.go
// version: 1.0.0
// guid: 7b9d3f1e-5c2a-48e6-b0d4-f8a1c6e32795

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rodaddy/audiobook-pipeline/internal/cache"
)

const searchResultLimit = 10

// Client queries the Audible product catalog API. Searches are rate
// limited and cached per query so repeated batch runs don't hammer the API.
type Client struct {
	httpClient *http.Client
	region     string
	baseURL    string
	limiter    *rate.Limiter
	cache      *cache.Cache[[]Candidate]
}

// NewClient creates a catalog client for a marketplace region ("com",
// "co.uk", "de", ...).
func NewClient(region string) *Client {
	if region == "" {
		region = "com"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		region:     region,
		baseURL:    fmt.Sprintf("https://api.audible.%s/1.0", region),
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
		cache:      cache.New[[]Candidate](time.Hour),
	}
}

// Search runs one keyword query and returns up to 10 candidates. An API
// or transport failure returns the error; callers decide whether to
// continue with other queries.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	return c.cache.GetOrFill(c.region+"|"+query, func() ([]Candidate, error) {
		return c.search(ctx, query)
	})
}

func (c *Client) search(ctx context.Context, query string) ([]Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"keywords":         {query},
		"num_results":      {fmt.Sprint(searchResultLimit)},
		"products_sort_by": {"Relevance"},
		"response_groups":  {"contributors,media,product_desc,product_attrs,series,category_ladders"},
		"image_sizes":      {"500"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/catalog/products?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var payload struct {
		Products []apiProduct `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	results := make([]Candidate, 0, len(payload.Products))
	for _, p := range payload.Products {
		results = append(results, p.toCandidate())
	}
	log.Printf("[DEBUG] catalog: query=%q results=%d", query, len(results))
	return results, nil
}

// SearchAll runs multiple query strategies and merges the results,
// deduplicated by ASIN in first-seen order. With widen set (an AI client
// is available to filter afterwards) author-qualified queries are added.
// Per-query failures are logged and skipped, never fatal.
func (c *Client) SearchAll(ctx context.Context, title, series, author string, widen bool) []Candidate {
	queries := []string{title}
	if series != "" {
		queries = append(queries, series, series+" "+title)
	}
	if widen && author != "" {
		queries = append(queries, author+" "+title)
		if series != "" {
			queries = append(queries, author+" "+series)
		}
	}

	seen := make(map[string]bool)
	var all []Candidate
	for _, query := range queries {
		if strings.TrimSpace(query) == "" {
			continue
		}
		hits, err := c.Search(ctx, query)
		if err != nil {
			log.Printf("[WARN] catalog: query %q failed: %v", query, err)
			continue
		}
		for _, h := range hits {
			if h.ASIN == "" || seen[h.ASIN] {
				continue
			}
			seen[h.ASIN] = true
			all = append(all, h)
		}
	}
	log.Printf("[DEBUG] catalog: %d unique candidates from %d queries", len(all), len(queries))
	return all
}

type apiPerson struct {
	Name string `json:"name"`
}

type apiSeries struct {
	Title    string `json:"title"`
	Sequence string `json:"sequence"`
}

type apiProduct struct {
	ASIN             string            `json:"asin"`
	Title            string            `json:"title"`
	Subtitle         string            `json:"subtitle"`
	Authors          []apiPerson       `json:"authors"`
	Narrators        []apiPerson       `json:"narrators"`
	Series           []apiSeries       `json:"series"`
	ReleaseDate      string            `json:"release_date"`
	PublisherName    string            `json:"publisher_name"`
	PublisherSummary string            `json:"publisher_summary"`
	Copyright        string            `json:"copyright"`
	Language         string            `json:"language"`
	ProductImages    map[string]string `json:"product_images"`
	CategoryLadders  []struct {
		Ladder []apiPerson `json:"ladder"`
	} `json:"category_ladders"`
}

func (p apiProduct) toCandidate() Candidate {
	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}
	narrators := make([]string, 0, len(p.Narrators))
	for _, n := range p.Narrators {
		if n.Name != "" {
			narrators = append(narrators, n.Name)
		}
	}

	allSeries := make([]SeriesRef, 0, len(p.Series))
	for _, s := range p.Series {
		allSeries = append(allSeries, SeriesRef{Name: s.Title, Position: s.Sequence})
	}
	primary := primarySeries(allSeries)

	year := ""
	if len(p.ReleaseDate) >= 4 {
		year = p.ReleaseDate[:4]
	}

	genre := ""
	if len(p.CategoryLadders) > 0 && len(p.CategoryLadders[0].Ladder) > 0 {
		genre = p.CategoryLadders[0].Ladder[0].Name
	}

	cover := p.ProductImages["500"]
	if cover == "" {
		for _, u := range p.ProductImages {
			cover = u
			break
		}
	}

	return Candidate{
		ASIN:             p.ASIN,
		Title:            p.Title,
		Subtitle:         p.Subtitle,
		Authors:          authors,
		AuthorStr:        strings.Join(authors, ", "),
		Series:           primary.Name,
		Position:         primary.Position,
		AllSeries:        allSeries,
		NarratorStr:      strings.Join(narrators, ", "),
		Year:             year,
		CoverURL:         cover,
		PublisherSummary: p.PublisherSummary,
		PublisherName:    p.PublisherName,
		Copyright:        p.Copyright,
		Language:         p.Language,
		Genre:            genre,
	}
}
