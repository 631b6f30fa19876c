// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package flexquery provides an API client for the IBKR Flex Query Web Service.
//
// The Flex Query Web Service is a two-step REST API:
//  1. SendRequest: Submits a query and returns a reference code.
//  2. GetStatement: Polls with the reference code until the XML statement is ready.
//
// Both endpoints require a Flex Web Service token for authentication and
// a "Java" User-Agent header. Both endpoints may return transient errors
// (e.g., 1001 server busy, 1019 statement generating) which are retried
// with exponential backoff.
//
// The client returns the raw statement XML verbatim: decoding it is the
// statement parser's concern, and the raw bytes are the artifact persisted
// between the fetch and normalize subcommands. Any network, authentication,
// or API failure is surfaced wrapped in ErrFetchFailed.
package flexquery

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flexfolio/flexfolio/internal/pkg/backoff"
	"github.com/flexfolio/flexfolio/internal/standard/xtime"
)

const (
	// sendRequestURL is the IBKR Flex Web Service endpoint for initiating a query.
	defaultSendRequestURL = "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService/SendRequest"
	// getStatementURL is the IBKR Flex Web Service endpoint for retrieving a statement.
	defaultGetStatementURL = "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService/GetStatement"
	// userAgent is the required User-Agent header for IBKR (IBKR expects "Java").
	userAgent = "Java"
	// maxAttempts is the maximum number of attempts for each API call.
	maxAttempts = 10
	// initialRetryDelay is the initial delay before the first retry.
	initialRetryDelay = 2 * time.Second
	// maxRetryDelay is the maximum delay between retries.
	maxRetryDelay = 30 * time.Second
)

// ErrFetchFailed indicates that the statement could not be retrieved from the
// reporting service. Retrying is the caller's decision.
var ErrFetchFailed = errors.New("fetch failed")

// Client is the interface for downloading Flex Query statements.
type Client interface {
	// Download fetches a Flex Query statement and returns its raw XML bytes.
	//
	// The token is the Flex Web Service token generated in the IBKR portal.
	// The queryID identifies which Flex Query to execute.
	// The fromDate and toDate optionally override the query's configured period.
	// Pass zero-value dates to use the query's default period.
	// If one is set, both must be set.
	Download(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) ([]byte, error)
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*client)

// ClientWithHTTPClient sets the HTTP client to use for requests.
func ClientWithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// ClientWithBaseURLs overrides the service endpoints, for tests.
func ClientWithBaseURLs(sendRequestURL string, getStatementURL string) ClientOption {
	return func(c *client) {
		c.sendRequestURL = sendRequestURL
		c.getStatementURL = getStatementURL
	}
}

// ClientWithRetryDelays overrides the backoff delays, for tests.
func ClientWithRetryDelays(initialDelay time.Duration, maxDelay time.Duration) ClientOption {
	return func(c *client) {
		c.initialRetryDelay = initialDelay
		c.maxRetryDelay = maxDelay
	}
}

// NewClient creates a new Flex Query API client. The logger is required.
func NewClient(logger *slog.Logger, options ...ClientOption) Client {
	c := &client{
		httpClient:        http.DefaultClient,
		logger:            logger,
		sendRequestURL:    defaultSendRequestURL,
		getStatementURL:   defaultGetStatementURL,
		initialRetryDelay: initialRetryDelay,
		maxRetryDelay:     maxRetryDelay,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// *** PRIVATE ***

type client struct {
	httpClient        *http.Client
	logger            *slog.Logger
	sendRequestURL    string
	getStatementURL   string
	initialRetryDelay time.Duration
	maxRetryDelay     time.Duration
}

// sendResponse is the XML response from the SendRequest endpoint.
type sendResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Status        string   `xml:"Status"`
	ReferenceCode string   `xml:"ReferenceCode"`
	URL           string   `xml:"Url"`
	ErrorCode     string   `xml:"ErrorCode"`
	ErrorMessage  string   `xml:"ErrorMessage"`
}

// retryableErrorCodes are IBKR error codes that indicate a transient failure.
var retryableErrorCodes = map[string]bool{
	"1001": true, // Statement could not be generated at this time.
	"1019": true, // Statement is being generated, please try again shortly.
}

func (c *client) Download(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) ([]byte, error) {
	// Validate required parameters.
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrFetchFailed)
	}
	if queryID == "" {
		return nil, fmt.Errorf("%w: query ID is required", ErrFetchFailed)
	}
	// Validate date parameters: if one is set, both must be set.
	if fromDate.IsZero() != toDate.IsZero() {
		return nil, fmt.Errorf("%w: fromDate and toDate must both be set or both be zero", ErrFetchFailed)
	}
	// Step 1: Send the request to get a reference code, with backoff on transient errors.
	referenceCode, err := c.sendRequest(ctx, token, queryID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("%w: sending flex query request: %v", ErrFetchFailed, err)
	}
	c.logger.Info("flex query request sent", "reference_code", referenceCode)
	// Step 2: Poll for the statement XML using the reference code, with backoff.
	xmlData, err := c.getStatement(ctx, token, referenceCode)
	if err != nil {
		return nil, fmt.Errorf("%w: getting flex query statement: %v", ErrFetchFailed, err)
	}
	return xmlData, nil
}

// sendRequest initiates a Flex Query and returns the reference code.
// Retries on transient IBKR errors with exponential backoff.
func (c *client) sendRequest(ctx context.Context, token string, queryID string, fromDate xtime.Date, toDate xtime.Date) (string, error) {
	// Build the request URL with query parameters.
	// Parameter order matches IBKR docs: t, q, [fd, td], v.
	reqURL := fmt.Sprintf("%s?t=%s&q=%s", c.sendRequestURL, token, queryID)
	// Optionally append date range override parameters (IBKR expects YYYYMMDD format).
	if !fromDate.IsZero() && !toDate.IsZero() {
		reqURL += fmt.Sprintf("&fd=%04d%02d%02d&td=%04d%02d%02d", fromDate.Year, fromDate.Month, fromDate.Day, toDate.Year, toDate.Month, toDate.Day)
	}
	reqURL += "&v=3"
	return backoff.Retry(ctx, c.retryPolicy(),
		func(ctx context.Context, attempt int) (string, bool, error) {
			if attempt > 0 {
				c.logger.Info("retrying send request", "attempt", attempt+1)
			}
			c.logger.Debug("send request", "query_id", queryID, "has_dates", !fromDate.IsZero())
			body, err := c.get(ctx, reqURL)
			if err != nil {
				return "", false, err
			}
			var sendResp sendResponse
			if err := xml.Unmarshal(body, &sendResp); err != nil {
				return "", false, fmt.Errorf("parsing send response: %w", err)
			}
			if sendResp.Status != "Success" {
				retryable := retryableErrorCodes[sendResp.ErrorCode]
				if retryable {
					c.logger.Warn("transient IBKR error, will retry", "code", sendResp.ErrorCode, "message", sendResp.ErrorMessage)
				}
				return "", retryable, fmt.Errorf("%s (code: %s)", sendResp.ErrorMessage, sendResp.ErrorCode)
			}
			return sendResp.ReferenceCode, false, nil
		},
	)
}

// getStatement polls the GetStatement endpoint until the data is ready.
// Retries on transient IBKR errors with exponential backoff.
func (c *client) getStatement(ctx context.Context, token string, referenceCode string) ([]byte, error) {
	return backoff.Retry(ctx, c.retryPolicy(),
		func(ctx context.Context, attempt int) ([]byte, bool, error) {
			if attempt > 0 {
				c.logger.Info("waiting for flex query statement", "attempt", attempt+1)
			}
			// Build the request URL with query parameters.
			// Parameter order matches IBKR docs: t, q, v.
			reqURL := fmt.Sprintf("%s?t=%s&q=%s&v=3", c.getStatementURL, token, referenceCode)
			body, err := c.get(ctx, reqURL)
			if err != nil {
				return nil, false, err
			}
			// An XML error response means the statement is not ready or failed;
			// anything else is the statement itself.
			bodyStr := strings.TrimSpace(string(body))
			if strings.HasPrefix(bodyStr, "<FlexStatementResponse") {
				var getResp sendResponse
				if err := xml.Unmarshal(body, &getResp); err != nil {
					return nil, false, fmt.Errorf("parsing get response: %w", err)
				}
				retryable := retryableErrorCodes[getResp.ErrorCode]
				if retryable {
					c.logger.Warn("statement not ready, will retry", "code", getResp.ErrorCode, "message", getResp.ErrorMessage)
				}
				return nil, retryable, fmt.Errorf("%s (code: %s)", getResp.ErrorMessage, getResp.ErrorCode)
			}
			return body, false, nil
		},
	)
}

func (c *client) retryPolicy() backoff.Policy {
	return backoff.Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: c.initialRetryDelay,
		MaxDelay:     c.maxRetryDelay,
	}
}

// get performs a single GET request with the IBKR-required User-Agent header
// and returns the response body.
func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	// IBKR requires the "Java" User-Agent header.
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
