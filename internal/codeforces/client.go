// Package codeforces wraps the public Codeforces HTTP API: envelope
// decoding, a circuit breaker so a flapping upstream fails fast, and an
// optional cache so listing endpoints don't hammer it.
package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrUpstream wraps every failure caused by the upstream API or the network
// between us and it, so handlers can map those to 502 instead of 500.
var ErrUpstream = errors.New("codeforces unavailable")

type Client struct {
	httpc   *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker[json.RawMessage]
	cache   Cache // may be nil
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, cache Cache, log zerolog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:    "codeforces",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		breaker: breaker,
		cache:   cache,
		log:     log.With().Str("component", "codeforces").Logger(),
	}
}

// envelope is the uniform response wrapper: {"status", "comment", "result"}.
type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	key := method + "?" + params.Encode()
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, key); ok {
			return raw, nil
		}
	}

	raw, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.fetch(ctx, method, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUpstream)
		}
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, raw)
	}
	return raw, nil
}

func (c *Client) fetch(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	u := c.baseURL + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: bad response body: %v", ErrUpstream, err)
	}
	if env.Status != "OK" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, env.Comment)
	}
	return env.Result, nil
}

// UserInfo fetches user.info for one or more handles.
func (c *Client) UserInfo(ctx context.Context, handles []string) ([]UserInfo, error) {
	params := url.Values{"handles": {strings.Join(handles, ";")}}
	raw, err := c.call(ctx, "user.info", params)
	if err != nil {
		return nil, err
	}
	var infos []UserInfo
	if err := json.Unmarshal(raw, &infos); err != nil {
		return nil, fmt.Errorf("%w: decode user.info: %v", ErrUpstream, err)
	}
	return infos, nil
}

// UserStatus fetches a slice of a user's submissions.
func (c *Client) UserStatus(ctx context.Context, handle string, from, count int) ([]Submission, error) {
	params := url.Values{
		"handle": {handle},
		"from":   {strconv.Itoa(from)},
		"count":  {strconv.Itoa(count)},
	}
	raw, err := c.call(ctx, "user.status", params)
	if err != nil {
		return nil, err
	}
	var subs []Submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, fmt.Errorf("%w: decode user.status: %v", ErrUpstream, err)
	}
	return subs, nil
}

// ContestList fetches contest.list.
func (c *Client) ContestList(ctx context.Context, gym bool) ([]Contest, error) {
	params := url.Values{"gym": {strconv.FormatBool(gym)}}
	raw, err := c.call(ctx, "contest.list", params)
	if err != nil {
		return nil, err
	}
	var contests []Contest
	if err := json.Unmarshal(raw, &contests); err != nil {
		return nil, fmt.Errorf("%w: decode contest.list: %v", ErrUpstream, err)
	}
	return contests, nil
}

// Problems fetches problemset.problems and folds the parallel statistics
// array into each problem's SolvedCount.
func (c *Client) Problems(ctx context.Context, tags []string) ([]Problem, error) {
	params := url.Values{}
	if len(tags) > 0 {
		params.Set("tags", strings.Join(tags, ";"))
	}
	raw, err := c.call(ctx, "problemset.problems", params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Problems          []Problem          `json:"problems"`
		ProblemStatistics []problemStatistic `json:"problemStatistics"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode problemset.problems: %v", ErrUpstream, err)
	}

	solved := make(map[string]int, len(result.ProblemStatistics))
	for _, s := range result.ProblemStatistics {
		solved[problemKey(s.ContestID, s.Index)] = s.SolvedCount
	}
	for i := range result.Problems {
		p := &result.Problems[i]
		p.SolvedCount = solved[problemKey(p.ContestID, p.Index)]
	}
	return result.Problems, nil
}

func problemKey(contestID int, index string) string {
	return strconv.Itoa(contestID) + index
}
