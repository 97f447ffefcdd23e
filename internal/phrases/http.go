package phrases

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/verte-zerg/romatype/internal/matcher"
	"github.com/verte-zerg/romatype/internal/model"
)

// PhrasePath is the API route serving phrases.
const PhrasePath = "/api/phrase"

const defaultHTTPTimeout = 10 * time.Second

// HTTPSource fetches phrases from a phrase API server.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource returns a source for the API rooted at baseURL.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSource{baseURL: baseURL, client: client}, nil
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, difficulty model.Difficulty) (model.Phrase, error) {
	endpoint := s.baseURL + PhrasePath + "?" + url.Values{"difficulty": {difficulty.String()}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return model.Phrase{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return model.Phrase{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Phrase{}, fmt.Errorf("unexpected phrase api status: %s", resp.Status)
	}
	var phrase model.Phrase
	if err := json.NewDecoder(resp.Body).Decode(&phrase); err != nil {
		return model.Phrase{}, fmt.Errorf("failed to decode phrase: %w", err)
	}
	phrase.Romaji = matcher.Sanitize(strings.TrimSpace(phrase.Romaji))
	if phrase.Romaji == "" {
		return model.Phrase{}, ErrNoPhrases
	}
	if phrase.Difficulty == "" {
		phrase.Difficulty = difficulty
	}
	return phrase, nil
}
