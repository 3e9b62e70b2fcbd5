package wikifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sahanbull/wikichunker/internal/enrich"
)

// DefaultBaseURL is the public annotation service endpoint.
const DefaultBaseURL = "http://www.wikifier.org"

// Extraction failures; both leave the task retry-able from the queue's
// point of view once its failure flag is cleared.
var (
	ErrDecode        = errors.New("wikifier: undecodable response")
	ErrNoAnnotations = errors.New("wikifier: no annotations in response")
)

// Annotation mirrors one entry of the service's annotations array.
type Annotation struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	PageRank       float64 `json:"pageRank"`
	WikiDataItemID string  `json:"wikiDataItemId"`
}

// annotateResponse distinguishes a missing annotations field from an empty
// one; only the former is an error.
type annotateResponse struct {
	Annotations *[]Annotation `json:"annotations"`
}

// Client calls the external annotation service and converts its output into
// ranked entities.
type Client struct {
	BaseURL    string
	UserKey    string
	HTTPClient *http.Client
	Logger     *log.Logger
	Cache      *Cache
}

// NewClient constructs a Client; cache may be nil to disable caching.
func NewClient(baseURL, userKey string, timeout time.Duration, logger *log.Logger, cache *Cache) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		UserKey:    userKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
		Cache:      cache,
	}
}

// Extract returns at most five entities for the text, ranked by descending
// relevance. Blacklisted noise terms are stripped from the text before the
// call and blacklisted titles are dropped from the result; annotations
// without a stable Wikidata id are silently skipped.
func (c *Client) Extract(ctx context.Context, text string) ([]enrich.Entity, error) {
	text = stripBlacklistedTerms(text)
	if runes := []rune(text); len(runes) > enrich.CharacterLimit {
		c.Logger.Printf("warning: character limit exceeded, text truncated from %d to %d", len(runes), enrich.CharacterLimit)
		text = string(runes[:enrich.CharacterLimit])
	}

	if entities, ok := c.Cache.Get(ctx, text); ok {
		cacheHits.Inc()
		return entities, nil
	}
	extractCalls.Inc()

	annotations, err := c.annotate(ctx, text)
	if err != nil {
		extractFailures.Inc()
		return nil, err
	}

	sort.SliceStable(annotations, func(i, j int) bool {
		return annotations[i].PageRank > annotations[j].PageRank
	})
	if len(annotations) > 5 {
		annotations = annotations[:5]
	}

	entities := []enrich.Entity{}
	for _, a := range annotations {
		if a.WikiDataItemID == "" || titleBlacklisted(a.Title) {
			continue
		}
		entities = append(entities, enrich.Entity{ID: a.WikiDataItemID, Title: a.Title, URL: a.URL})
	}

	c.Cache.Set(ctx, text, entities)
	return entities, nil
}

func (c *Client) annotate(ctx context.Context, text string) ([]Annotation, error) {
	form := url.Values{
		"userKey":                {c.UserKey},
		"text":                   {text},
		"lang":                   {"auto"},
		"support":                {"false"},
		"ranges":                 {"false"},
		"includeCosines":         {"true"},
		"nTopDfValuesToIgnore":   {"50"},
		"nWordsToIgnoreFromList": {"50"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/annotate-article", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikifier: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wikifier: %w", err)
	}
	var decoded annotateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, ErrDecode
	}
	if decoded.Annotations == nil {
		return nil, ErrNoAnnotations
	}
	return *decoded.Annotations, nil
}

func removeAll(text, term string) string {
	return strings.ReplaceAll(text, term, "")
}
