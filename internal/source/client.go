// Package source pulls raw call records from the vendor BI connector and
// from local export files.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"callsight/internal/logger"
	"callsight/internal/transform"
	"callsight/internal/window"
)

// errLimitReached stops an export stream early once the caller's record
// limit is satisfied.
var errLimitReached = errors.New("record limit reached")

// Client talks to the vendor's dataset API. The query path is fast but the
// vendor truncates long text columns at 1024 characters; the export path
// streams complete rows. Callers pick the strategy explicitly.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	datasetID    string

	httpClient *http.Client
	token      string
	log        *logrus.Entry
}

func NewClient(baseURL, clientID, clientSecret, datasetID string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		datasetID:    datasetID,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		log:          logger.NewComponent("source-client"),
	}
}

// Fetch pulls raw records for the window. fullExport selects the streaming
// strategy; use it whenever complete conversation text matters.
func (c *Client) Fetch(ctx context.Context, w window.Window, limit int, fullExport bool) ([]transform.RawRecord, error) {
	if fullExport {
		return c.exportWindow(ctx, w, limit)
	}
	return c.queryWindow(ctx, w, limit)
}

func (c *Client) authenticate(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	if parsed.AccessToken == "" {
		return errors.New("auth response missing access_token")
	}
	c.token = parsed.AccessToken
	return nil
}

// doAuthed runs a request, re-authenticating exactly once on a 401 before
// surfacing the failure. Non-auth HTTP failures surface immediately; fetch
// retries are the caller's business.
func (c *Client) doAuthed(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	if c.token == "" {
		if err := c.authenticate(ctx); err != nil {
			return nil, err
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("vendor request: %w", err)
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.log.Warn("token rejected, re-authenticating")
			if err := c.authenticate(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("vendor request failed: status %d: %s", resp.StatusCode, string(body))
		}
		return resp, nil
	}
}

// queryWindow pushes the window down to the vendor. Long text columns come
// back truncated at 1024 characters on this path.
func (c *Client) queryWindow(ctx context.Context, w window.Window, limit int) ([]transform.RawRecord, error) {
	sqlText := fmt.Sprintf(
		"SELECT * FROM table WHERE call_start >= '%s' AND call_start <= '%s 23:59:59'",
		w.StartParam(), w.EndParam())
	if limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", limit)
	}
	payload, _ := json.Marshal(map[string]string{"sql": sqlText})

	c.log.WithFields(logrus.Fields{
		"start": w.StartParam(), "end": w.EndParam(), "limit": limit,
	}).Info("querying vendor dataset")

	resp, err := c.doAuthed(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("%s/v1/datasets/query/execute/%s", c.baseURL, c.datasetID),
			bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	cols := make([]string, len(parsed.Columns))
	for i, h := range parsed.Columns {
		cols[i] = transform.NormalizeHeader(h)
	}

	out := make([]transform.RawRecord, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		rec := transform.RawRecord{}
		for i, v := range row {
			if i >= len(cols) || v == nil {
				continue
			}
			rec[cols[i]] = fmt.Sprint(v)
		}
		out = append(out, rec)
	}
	return out, nil
}

// exportWindow streams the full dataset as CSV and filters client-side by
// the window. Costs a pass over the whole dataset but never truncates text.
// Stops consuming the stream as soon as limit records are collected.
func (c *Client) exportWindow(ctx context.Context, w window.Window, limit int) ([]transform.RawRecord, error) {
	c.log.WithFields(logrus.Fields{
		"start": w.StartParam(), "end": w.EndParam(), "limit": limit,
	}).Info("streaming vendor dataset export")

	resp, err := c.doAuthed(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/v1/datasets/%s/export?includeHeader=true", c.baseURL, c.datasetID), nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []transform.RawRecord
	err = streamCSV(resp.Body, func(rec transform.RawRecord) error {
		if !inWindow(rec[transform.ColCallStart], w) {
			return nil
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			return errLimitReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, err
	}
	return out, nil
}

// streamCSV reads header-first CSV row by row, invoking fn per record. fn
// may return errLimitReached to stop consumption without buffering the rest.
func streamCSV(r io.Reader, fn func(transform.RawRecord) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read export header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = transform.NormalizeHeader(h)
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read export row: %w", err)
		}
		rec := transform.RawRecord{}
		for i, v := range row {
			if i < len(cols) {
				rec[cols[i]] = v
			}
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// inWindow compares the row's call_start date prefix against the window's
// YYYY-MM-DD bounds. Rows without a parseable date are excluded.
func inWindow(callStart string, w window.Window) bool {
	callStart = strings.TrimSpace(callStart)
	if len(callStart) < len(window.DateFormat) {
		return false
	}
	day := callStart[:len(window.DateFormat)]
	return day >= w.StartParam() && day <= w.EndParam()
}
