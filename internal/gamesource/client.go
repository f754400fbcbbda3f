package gamesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 16 << 20

type ClientConfig struct {
	LobbyURL   string
	APIURL     string
	UserAgent  string
	Cookie     string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
}

// HTTPClient is the production Source. Every call waits on a shared rate
// limiter, runs under its own timeout and passes through a circuit breaker.
type HTTPClient struct {
	cfg     ClientConfig
	inner   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	return newHTTPClient(cfg, &http.Client{})
}

func newHTTPClient(cfg ClientConfig, inner *http.Client) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "game-source",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			breakerState.Set(stateValue(to))
		},
	})
	return &HTTPClient{
		cfg:     cfg,
		inner:   inner,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: breaker,
	}
}

func (c *HTTPClient) ListOpenLobbies(ctx context.Context) ([]Lobby, error) {
	headers := map[string]string{}
	if c.cfg.UserAgent != "" {
		headers["User-Agent"] = c.cfg.UserAgent
	}
	if c.cfg.Cookie != "" {
		headers["Cookie"] = c.cfg.Cookie
	}
	body, err := c.get(ctx, "lobbies", c.cfg.LobbyURL, headers, false)
	if err != nil {
		return nil, err
	}
	var resp lobbiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode lobbies: %w", err)
	}
	return resp.Lobbies, nil
}

func (c *HTTPClient) FetchGameResult(ctx context.Context, gameID string) (json.RawMessage, error) {
	body, err := c.get(ctx, "game", c.cfg.APIURL+"/game/"+url.PathEscape(gameID), nil, true)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *HTTPClient) FetchPlayerGames(ctx context.Context, playerID string) ([]PlayerGame, error) {
	body, err := c.get(ctx, "player", c.cfg.APIURL+"/player/"+url.PathEscape(playerID), nil, false)
	if err != nil {
		return nil, err
	}
	var resp playerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", playerID, err)
	}
	return resp.Games, nil
}

// get fetches endpoint and returns its body. With jsonOnError, a non-2xx
// response carrying a JSON object is returned as a body instead of an error:
// the game endpoint reports missing games that way.
func (c *HTTPClient) get(ctx context.Context, name, endpoint string, headers map[string]string, jsonOnError bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, headers, jsonOnError)
	})
	switch {
	case err == nil:
		sourceRequests.WithLabelValues(name, "ok").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		sourceRequests.WithLabelValues(name, "rejected").Inc()
	default:
		sourceRequests.WithLabelValues(name, "error").Inc()
	}
	return body, err
}

func (c *HTTPClient) do(ctx context.Context, endpoint string, headers map[string]string, jsonOnError bool) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.inner.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	if jsonOnError && isJSONObject(body) {
		return body, nil
	}
	return nil, &StatusError{URL: endpoint, Code: resp.StatusCode, Body: truncate(string(body), 512)}
}

// StatusError is a non-2xx response without a usable body.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s failed with status %d: %s", e.URL, e.Code, e.Body)
}

func isJSONObject(b []byte) bool {
	var probe map[string]json.RawMessage
	return json.Unmarshal(b, &probe) == nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
