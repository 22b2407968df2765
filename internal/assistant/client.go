package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"tower-insights-go/internal/logger"
	"tower-insights-go/internal/network"
	"tower-insights-go/internal/types"
)

const (
	maxHistoryTurns = 5
	mockReply       = "MOCK REPLY: Prioritize the towers listed as failed, starting with the lowest signal strength."
)

type Config struct {
	APIURL          string
	APIKey          string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	MaxRetry        time.Duration
	// RetryInitialInterval overrides the first backoff delay when set.
	RetryInitialInterval time.Duration
	Mock                 bool
	HTTPClient           *http.Client
}

// Client is the tower assistant backed by a Gemini generateContent endpoint.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logrus.Entry
}

func NewClient(cfg Config) (*Client, error) {
	if !cfg.Mock && (strings.TrimSpace(cfg.APIURL) == "" || strings.TrimSpace(cfg.APIKey) == "") {
		return nil, errors.New("gemini api not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 45 * time.Second
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1024
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc, log: logger.New().Component("assistant")}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// BuildContext renders the network status the assistant is grounded on.
func BuildContext(status network.Status) string {
	var b strings.Builder
	b.WriteString("You are NetTowerGuard AI, the network tower monitoring assistant for a telecommunications operator.\n\n")
	b.WriteString("Current Network Status:\n")
	fmt.Fprintf(&b, "- Total towers: %d\n", status.Total)
	fmt.Fprintf(&b, "- Operational: %d towers (%d%%)\n", status.Operational, status.OperationalPct)
	fmt.Fprintf(&b, "- At Risk: %d towers (%d%%)\n", status.AtRisk, status.AtRiskPct)
	fmt.Fprintf(&b, "- Failed: %d towers (%d%%)\n", status.Failed, status.FailedPct)
	fmt.Fprintf(&b, "- System Health: %d%%\n", status.SystemHealth)
	fmt.Fprintf(&b, "- Average Signal Strength: %.1f%%\n\n", status.AvgSignal)
	b.WriteString("High Priority Towers (requiring attention):\n")
	if len(status.PriorityTowers) == 0 {
		b.WriteString("- none\n")
	}
	for _, t := range status.PriorityTowers {
		fmt.Fprintf(&b, "- %s (%s): Status %s, Risk %d%%, Signal %d%%, Last Issue: %s\n",
			t.Name, t.Location, t.Status, t.FailureProbability, t.SignalStrength, t.LastIssue)
	}
	b.WriteString(`
Your role:
1. Provide technical analysis of tower network status
2. Recommend maintenance priorities
3. Identify potential failure patterns
4. Offer troubleshooting steps for tower issues
5. Analyze risk and provide actionable insights

Reply professionally and concisely as a telecommunications specialist.`)
	return b.String()
}

func buildRequest(prompt string, status network.Status, history []types.ChatMessage, cfg Config) generateRequest {
	contents := []content{{Role: "user", Parts: []part{{Text: BuildContext(status)}}}}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, m := range history {
		role := "user"
		if m.Role == "model" || m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: prompt}}})
	return generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	}
}

// Reply asks the model about prompt, grounded on status and the most recent
// conversation turns.
func (c *Client) Reply(ctx context.Context, prompt string, status network.Status, history []types.ChatMessage) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}
	if c.cfg.Mock {
		c.log.Info("mock LLM mode ON - returning deterministic reply")
		return mockReply, nil
	}

	data, err := json.Marshal(buildRequest(prompt, status, history, c.cfg))
	if err != nil {
		return "", err
	}
	c.log.WithField("payload_len", len(data)).Debug("gemini request")

	var reply string
	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.log.WithError(err).Warn("gemini request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		c.log.WithField("http_status", resp.StatusCode).Debug("gemini raw:\n" + string(body))

		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("API request failed with status: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode < 500 {
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}

		var parsed generateResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return lastErr
		}
		if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 ||
			parsed.Candidates[0].Content.Parts[0].Text == "" {
			lastErr = errors.New("unexpected response format from Gemini API")
			return backoff.Permanent(lastErr)
		}
		reply = parsed.Candidates[0].Content.Parts[0].Text
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.cfg.MaxRetry
	if c.cfg.RetryInitialInterval > 0 {
		b.InitialInterval = c.cfg.RetryInitialInterval
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", fmt.Errorf("assistant reply failed: %w", lastErr)
	}
	return reply, nil
}
