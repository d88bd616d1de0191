package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
)

// ClientConfig holds the connection details for the helpdesk API.
type ClientConfig struct {
	BaseUrl     string `errorTxt:"helpdesk-url" mandatory:"yes"`
	ApiKey      string `errorTxt:"helpdesk-api-key" mandatory:"yes"`
	AgentEmail  string `errorTxt:"helpdesk-agent-email" mandatory:"yes"`
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client is a thin wrapper around resty that knows the helpdesk auth headers, response shapes and
// retry policy.
type Client struct {
	log         logger.Logger
	rc          *resty.Client
	MaxRetries  int
	BackoffBase time.Duration
	Sleep       SleepFunc
}

func NewClient(log logger.Logger, cfg ClientConfig) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseUrl, "/")).
		SetHeaders(map[string]string{
			constants.HeaderApiKey:     cfg.ApiKey,
			constants.HeaderAgentEmail: cfg.AgentEmail,
			"Content-Type":             "application/json",
			"Accept":                   "application/json",
		})
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	c := &Client{
		log:         log,
		rc:          rc,
		MaxRetries:  cfg.MaxRetries,
		BackoffBase: cfg.BackoffBase,
		Sleep:       sleepContext,
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = constants.DefaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = constants.DefaultBackoffBase
	}
	return c
}

// Get issues one GET request for path and decodes the JSON body.
// Numbers are decoded as json.Number. Non-2xx responses return a *StatusError.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (interface{}, error) {
	req := c.rc.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParamsFromValues(params)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, errors.Wrapf(err, "helpdesk request %v failed", path)
	}
	if !resp.IsSuccess() {
		return nil, newStatusError(resp.StatusCode(), resp.Request.URL, resp.Body())
	}
	return decodeBody(resp.Body())
}

// GetWithRetry calls Get up to c.MaxRetries times, waiting BackoffBase * 2^(attempt-1) between attempts
// while the response status is retryable (409 or 500). The last error is returned when the budget runs out.
// Other errors are returned at once.
func (c *Client) GetWithRetry(ctx context.Context, path string, params url.Values) (interface{}, error) {
	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		body, err := c.Get(ctx, path, params)
		if err == nil {
			return body, nil
		}
		se, ok := AsStatusError(err)
		if !ok || !se.IsRetryable() {
			return nil, err
		}
		lastErr = err
		if attempt == c.MaxRetries {
			break
		}
		wait := c.BackoffBase * time.Duration(1<<uint(attempt-1))
		c.log.WithField("attempt", attempt).Warn("transient helpdesk error on ", path, " (status ", se.Code, "), retrying in ", wait)
		if err := c.Sleep(ctx, wait); err != nil {
			return nil, errors.Wrap(err, "retry wait interrupted")
		}
	}
	return nil, errors.Wrapf(lastErr, "giving up on %v after %v attempts", path, c.MaxRetries)
}

// ResultsList returns the list of records in a decoded body, which may be a bare list or an object with a
// "results" list. Any other shape gives nil.
func ResultsList(body interface{}) []interface{} {
	switch b := body.(type) {
	case []interface{}:
		return b
	case map[string]interface{}:
		if l, ok := b["results"].([]interface{}); ok {
			return l
		}
	}
	return nil
}

func decodeBody(b []byte) (interface{}, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var retval interface{}
	if err := dec.Decode(&retval); err != nil {
		return nil, errors.Wrap(err, "error decoding helpdesk response")
	}
	return retval, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
