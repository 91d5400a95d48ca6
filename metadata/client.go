// ABOUTME: This file implements the metadata enrichment client (C4) against an external catalog API
// ABOUTME: Client-credentials auth cached for the run, batched multiquery lookup, hit normalization
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	maxBatchSize  = 10
	tokenEndpoint = "https://id.twitch.tv/oauth2/token"
)

// ErrNoCredentials is returned by Disabled.Authenticate, letting the
// orchestrator's existing "auth failure -> scrape-only" handling (§4.8,
// §7) cover the "no credentials configured" case without a separate code
// path: the caller never needs to know which of the two happened.
var ErrNoCredentials = fmt.Errorf("metadata provider credentials not configured")

// Disabled is a MetadataClient stand-in used when config.MetadataConfig
// is not Enabled(): it fails authentication immediately, without making
// a network call, instead of letting Client spend the run's first
// request on a token exchange doomed to fail against empty credentials.
type Disabled struct{}

// Authenticate always fails with ErrNoCredentials.
func (Disabled) Authenticate(context.Context) error {
	return ErrNoCredentials
}

// BatchLookup is never reached: Authenticate always fails first, and the
// orchestrator does not start the enrich pool when authentication fails.
func (Disabled) BatchLookup(context.Context, []string) ([]*Hit, error) {
	return nil, ErrNoCredentials
}

// tokenResponse is the client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Client authenticates once per run against the token endpoint and issues
// batched multiquery lookups (§4.5). It is stateless with respect to
// pacing: rate limiting is the enrich workers' responsibility.
type Client struct {
	clientID     string
	clientSecret string
	apiBaseURL   string
	httpClient   *http.Client
	logger       *slog.Logger

	accessToken string
}

// New constructs a Client with a connection-pooled HTTP client tuned the
// way the teacher's own external-API clients are: generous timeouts,
// capped idle connections, no retries at this layer.
func New(clientID, clientSecret, apiBaseURL string, logger *slog.Logger) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiBaseURL:   strings.TrimSuffix(apiBaseURL, "/"),
		logger:       logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        25,
				MaxIdleConnsPerHost: 25,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Authenticate exchanges the configured client credentials for a bearer
// token and caches it for the remainder of the run.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.logger.Info("authenticated against metadata provider", "expires_in", tok.ExpiresIn)
	return nil
}

// Hit is one normalized lookup result. A nil Hit means "no hit" for the
// corresponding input name.
type Hit struct {
	Description string
	Rating      *float64
	ReleaseDate *time.Time
	Developer   *string
	Publisher   *string
	Genre       *string
	Images      []string
}

type rawCompany struct {
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
}

type rawGenre struct {
	Name string `json:"name"`
}

type rawImage struct {
	URL string `json:"url"`
}

type rawGame struct {
	Name              string       `json:"name"`
	Summary           string       `json:"summary"`
	SummaryRating     *float64     `json:"summary_rating"`
	FirstReleaseDate  *int64       `json:"first_release_date"`
	InvolvedCompanies []rawCompany `json:"involved_companies"`
	Genres            []rawGenre   `json:"genres"`
	Cover             *rawImage    `json:"cover"`
	Screenshots       []rawImage   `json:"screenshots"`
}

// BatchLookup resolves up to maxBatchSize names in a single multiquery
// request, correlating each response back to its input by alias index.
// Missing or malformed responses map to a nil Hit (§4.5).
func (c *Client) BatchLookup(ctx context.Context, names []string) ([]*Hit, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) > maxBatchSize {
		return nil, fmt.Errorf("batch lookup: %d names exceeds max batch size %d", len(names), maxBatchSize)
	}

	var body bytes.Buffer
	for i, name := range names {
		fmt.Fprintf(&body, "query games \"q_%d\" {\n", i)
		fmt.Fprintf(&body, "  search %q;\n", name+"*")
		body.WriteString("  fields name,summary,summary_rating,first_release_date,involved_companies.company.name,genres.name,cover.url,screenshots.url;\n")
		body.WriteString("  sort popularity desc;\n")
		body.WriteString("  limit 1;\n")
		body.WriteString("};\n")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/v4/multiquery", &body)
	if err != nil {
		return nil, fmt.Errorf("build multiquery request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute multiquery request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("multiquery request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var results []struct {
		Name   string    `json:"name"`
		Result []rawGame `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode multiquery response: %w", err)
	}

	byAlias := make(map[int]rawGame, len(results))
	for _, r := range results {
		idx, ok := aliasIndex(r.Name)
		if !ok || len(r.Result) == 0 {
			continue
		}
		byAlias[idx] = r.Result[0]
	}

	hits := make([]*Hit, len(names))
	for i := range names {
		g, ok := byAlias[i]
		if !ok {
			hits[i] = nil
			continue
		}
		hits[i] = normalize(g)
	}

	return hits, nil
}

func aliasIndex(alias string) (int, bool) {
	const prefix = "q_"
	if !strings.HasPrefix(alias, prefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(alias, prefix))
	if err != nil {
		return 0, false
	}
	return idx, true
}

// normalize maps a provider hit into catalog fields per §4.5.
func normalize(g rawGame) *Hit {
	hit := &Hit{Description: g.Summary}

	if g.SummaryRating != nil {
		rating := math.Round((*g.SummaryRating/20)*100) / 100
		hit.Rating = &rating
	}

	if g.FirstReleaseDate != nil {
		t := time.Unix(*g.FirstReleaseDate, 0).UTC()
		hit.ReleaseDate = &t
	}

	if len(g.InvolvedCompanies) > 0 {
		name := g.InvolvedCompanies[0].Company.Name
		hit.Developer = &name
		hit.Publisher = &name
	}

	if len(g.Genres) > 0 {
		names := make([]string, len(g.Genres))
		for i, genre := range g.Genres {
			names[i] = genre.Name
		}
		genre := strings.Join(names, ", ")
		hit.Genre = &genre
	}

	var images []string
	if g.Cover != nil && g.Cover.URL != "" {
		images = append(images, rewriteImageURL(g.Cover.URL))
	}
	for i, s := range g.Screenshots {
		if i >= 3 {
			break
		}
		images = append(images, rewriteImageURL(s.URL))
	}
	hit.Images = images

	return hit
}

func rewriteImageURL(raw string) string {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	return strings.Replace(raw, "t_thumb", "t_1080p", 1)
}
