// Package judge is a client for the Codeforces public API: contest
// submissions for the live updater and contest metadata for the importer.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://codeforces.com/api"

	defaultTimeout   = 10 * time.Second
	defaultRetries   = 2
	defaultBackoff   = 500 * time.Millisecond
	defaultPerSecond = 2

	statusOK = "OK"

	// Bodies beyond this are not a valid API answer.
	maxBodyBytes = 64 << 20
)

// Client talks to the judge API. It is safe for concurrent use; all callers
// share one rate limiter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	logger  logger.Logger
}

// New creates a client with defaults for the public Codeforces API.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultPerSecond), 1),
		retries: defaultRetries,
		backoff: defaultBackoff,
		logger:  logger.Get().Named("judge"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecentSubmissions returns up to maxCount of the newest submissions of a
// contest, newest first.
func (c *Client) RecentSubmissions(ctx context.Context, contestID int64, maxCount int) ([]model.Submission, error) {
	params := url.Values{}
	params.Set("contestId", strconv.FormatInt(contestID, 10))
	params.Set("from", "1")
	params.Set("count", strconv.Itoa(maxCount))

	var raw []apiSubmission
	if err := c.call(ctx, "contest.status", params, &raw); err != nil {
		return nil, err
	}
	return toSubmissions(raw), nil
}

// HandleSubmissions returns every submission of one handle in a contest.
func (c *Client) HandleSubmissions(ctx context.Context, contestID int64, handle string) ([]model.Submission, error) {
	params := url.Values{}
	params.Set("contestId", strconv.FormatInt(contestID, 10))
	params.Set("handle", handle)
	params.Set("from", "1")

	var raw []apiSubmission
	if err := c.call(ctx, "contest.status", params, &raw); err != nil {
		return nil, err
	}
	return toSubmissions(raw), nil
}

// Contest returns contest metadata and its problems. Only the first row of
// the standings is requested; the ranking itself is not used.
func (c *Client) Contest(ctx context.Context, contestID int64) (model.Contest, []model.Problem, error) {
	params := url.Values{}
	params.Set("contestId", strconv.FormatInt(contestID, 10))
	params.Set("from", "1")
	params.Set("count", "1")

	var raw apiStandings
	if err := c.call(ctx, "contest.standings", params, &raw); err != nil {
		return model.Contest{}, nil, err
	}

	start := time.Unix(raw.Contest.StartTimeSeconds, 0).UTC()
	contest := model.Contest{
		ID:        raw.Contest.ID,
		Name:      raw.Contest.Name,
		StartTime: start,
		EndTime:   start.Add(time.Duration(raw.Contest.DurationSeconds) * time.Second),
	}
	problems := make([]model.Problem, 0, len(raw.Problems))
	for _, p := range raw.Problems {
		problems = append(problems, model.Problem{
			ContestID: contest.ID,
			Index:     p.Index,
			Name:      p.Name,
			Points:    p.Points,
			Rating:    p.Rating,
			URL:       ProblemURL(contest.ID, p.Index),
		})
	}
	return contest, problems, nil
}

// ProblemURL is the public statement page of a contest problem.
func ProblemURL(contestID int64, index string) string {
	return "https://codeforces.com/contest/" + strconv.FormatInt(contestID, 10) + "/problem/" + url.PathEscape(index)
}

// call performs one API method with retries and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff<<(attempt-1)); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}

		start := time.Now()
		retry, err := c.do(ctx, method, params, out)
		outcome := "ok"
		switch {
		case err == nil:
		case errors.Is(err, ErrAPIStatus):
			outcome = "api_error"
		default:
			outcome = "error"
		}
		metrics.RecordJudgeRequest(method, outcome, float64(time.Since(start).Milliseconds()))
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		c.logger.Debug(ctx, "retrying judge request",
			logger.String("method", method),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return lastErr
}

// do sends one request. The bool result reports whether a failure is worth
// retrying.
func (c *Client) do(ctx context.Context, method string, params url.Values, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return true, fmt.Errorf("%s: read body: %w", method, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	// The API reports bad arguments as 400 with a FAILED envelope.
	if decodeErr == nil && env.Status != "" && env.Status != statusOK {
		return false, fmt.Errorf("%w: %s: %s", ErrAPIStatus, method, env.Comment)
	}
	if resp.StatusCode != http.StatusOK {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return transient, fmt.Errorf("%w: %s: %d", ErrHTTPStatus, method, resp.StatusCode)
	}
	if decodeErr != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrDecode, method, decodeErr)
	}
	if env.Status != statusOK {
		return false, fmt.Errorf("%w: %s: missing status", ErrDecode, method)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return false, fmt.Errorf("%w: %s result: %v", ErrDecode, method, err)
	}
	return false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
