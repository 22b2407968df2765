package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"tower-insights-go/internal/logger"
	"tower-insights-go/internal/types"
)

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	MaxRetry time.Duration
	// RetryInitialInterval overrides the first backoff delay when set.
	RetryInitialInterval time.Duration
	HTTPClient           *http.Client
}

// Client talks to the tower failure prediction service.
type Client struct {
	base         string
	http         *http.Client
	maxRetry     time.Duration
	initialDelay time.Duration
	log          *logrus.Entry
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("prediction base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid prediction base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	maxRetry := cfg.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 20 * time.Second
	}
	return &Client{
		base:         base,
		http:         hc,
		maxRetry:     maxRetry,
		initialDelay: cfg.RetryInitialInterval,
		log:          logger.New().Component("prediction-client"),
	}, nil
}

// GetPrediction fetches the prediction for one tower on one date.
func (c *Client) GetPrediction(ctx context.Context, towerID, location, date string) ([]types.PredictionRecord, error) {
	u, err := url.Parse(c.base + "/predict/tower/" + url.PathEscape(towerID))
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if location != "" {
		q.Set("location", location)
	}
	q.Set("date", date)
	u.RawQuery = q.Encode()

	body, err := c.doJSON(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tower prediction: %w", err)
	}
	recs, err := decodePredictions(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tower prediction: %w", err)
	}
	for i := range recs {
		if recs[i].TowerID == "" {
			recs[i].TowerID = towerID
		}
		if recs[i].Location == "" {
			recs[i].Location = location
		}
		if recs[i].Date == "" {
			recs[i].Date = date
		}
	}
	return recs, nil
}

// GetBatchPredictions fetches predictions for several towers over a date range.
func (c *Client) GetBatchPredictions(ctx context.Context, towerIDs []string, startDate, endDate string) ([]types.PredictionRecord, error) {
	payload, err := json.Marshal(map[string]any{
		"tower_ids":  towerIDs,
		"start_date": startDate,
		"end_date":   endDate,
	})
	if err != nil {
		return nil, err
	}
	body, err := c.doJSON(ctx, http.MethodPost, c.base+"/predict/towers", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch predictions: %w", err)
	}
	recs, err := decodePredictions(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode batch predictions: %w", err)
	}
	return recs, nil
}

// Forecast fetches every tower for each of days consecutive dates starting at
// from. Individual failures are logged and skipped; it only fails when
// nothing could be fetched.
func (c *Client) Forecast(ctx context.Context, towerIDs []string, from time.Time, days int) ([]types.PredictionRecord, error) {
	var out []types.PredictionRecord
	var lastErr error
	attempted, failed := 0, 0
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format(types.DateLayout)
		for _, id := range towerIDs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempted++
			recs, err := c.GetPrediction(ctx, id, LocationFor(id), date)
			if err != nil {
				failed++
				lastErr = err
				c.log.WithFields(logrus.Fields{"tower_id": id, "date": date}).WithError(err).Warn("prediction fetch failed, skipping")
				continue
			}
			out = append(out, recs...)
		}
	}
	c.log.WithFields(logrus.Fields{
		"attempted": attempted,
		"failed":    failed,
		"records":   len(out),
	}).Info("forecast fetch complete")
	if attempted > 0 && failed == attempted {
		return nil, fmt.Errorf("all %d prediction fetches failed: %w", attempted, lastErr)
	}
	return out, nil
}

// LocationFor derives the location label the prediction service expects for
// ids shaped like TWR001.
func LocationFor(towerID string) string {
	if len(towerID) <= 3 {
		return "Location_" + towerID
	}
	return "Location_" + towerID[3:]
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetry
	if c.initialDelay > 0 {
		bo.InitialInterval = c.initialDelay
	}
	var lastErr error
	var out []byte
	op := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			lastErr = fmt.Errorf("prediction service rejected request: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
			return backoff.Permanent(lastErr)
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
			return lastErr
		}
		if len(b) == 0 {
			lastErr = errors.New("empty body")
			return lastErr
		}
		out = b
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return out, nil
}
