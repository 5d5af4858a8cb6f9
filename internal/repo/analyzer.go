package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/stratusops/spikecorr/internal/models"
)

// AnalyzerClient hands the per-cycle correlation report to the external
// reasoning collaborator and returns its free-form analysis text. The engine
// never parses or validates that text.
type AnalyzerClient struct {
	baseURL    string
	path       string
	httpClient *http.Client
}

// NewAnalyzerClient constructs a client for the configured analyzer endpoint.
func NewAnalyzerClient(baseURL, analyzePath string, timeout time.Duration) *AnalyzerClient {
	return &AnalyzerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    analyzePath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Analyze posts the report and returns the collaborator's analysis text.
func (c *AnalyzerClient) Analyze(ctx context.Context, report models.CorrelationReport) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("analyzer base URL not configured")
	}

	var response struct {
		Analysis string `json:"analysis"`
	}
	if err := c.postJSON(ctx, c.analyzeURL(), report, &response); err != nil {
		return "", fmt.Errorf("analyzer request failed: %w", err)
	}
	return response.Analysis, nil
}

func (c *AnalyzerClient) analyzeURL() string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(c.path, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *AnalyzerClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analyzer returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
