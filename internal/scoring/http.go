package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20

	msgTimeout         = "scoring request timeout"
	msgInvalidResponse = "invalid response from scoring oracle"
)

// OAuthConfig enables client-credentials auth against the oracle.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

func (o OAuthConfig) enabled() bool {
	return strings.TrimSpace(o.ClientID) != "" && strings.TrimSpace(o.TokenURL) != ""
}

// HTTPClient calls the scoring oracle over HTTP.
type HTTPClient struct {
	url        string
	httpClient *http.Client
}

type scoreRequest struct {
	JD     string `json:"jd"`
	Resume string `json:"resume"`
}

type scoreResponse struct {
	Result struct {
		Prediction string  `json:"prediction"`
		Confidence float64 `json:"confidence"`
	} `json:"result"`
}

// NewHTTPClient builds a client for url. A zero timeout uses 30s.
func NewHTTPClient(ctx context.Context, url string, timeout time.Duration, oauth OAuthConfig) (*HTTPClient, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("SCORING_API_URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}
	if oauth.enabled() {
		cc := clientcredentials.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			TokenURL:     oauth.TokenURL,
		}
		httpClient = cc.Client(ctx)
		httpClient.Timeout = timeout
	}
	return &HTTPClient{url: url, httpClient: httpClient}, nil
}

// Score posts the pair to the oracle and parses its verdict.
func (c *HTTPClient) Score(ctx context.Context, jobText, resumeText string) (Result, error) {
	payload, err := json.Marshal(scoreRequest{JD: jobText, Resume: resumeText})
	if err != nil {
		return Result{}, &Error{Message: "encode scoring request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, &Error{Message: "build scoring request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Result{}, &Error{Message: msgTimeout, Transient: true, Err: err}
		}
		return Result{}, &Error{Message: "scoring request failed", Transient: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if isTimeout(err) {
			return Result{}, &Error{Message: msgTimeout, Transient: true, Err: err}
		}
		return Result{}, &Error{Message: msgInvalidResponse, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &Error{
			Message:   fmt.Sprintf("scoring error: %d", resp.StatusCode),
			Transient: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}
	if err := validateResponse(body); err != nil {
		return Result{}, &Error{Message: msgInvalidResponse, Err: err}
	}

	var parsed scoreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, &Error{Message: msgInvalidResponse, Err: err}
	}
	label, ok := normalizeLabel(parsed.Result.Prediction)
	if !ok {
		return Result{}, &Error{Message: msgInvalidResponse, Err: fmt.Errorf("unknown prediction %q", parsed.Result.Prediction)}
	}
	return Result{Label: label, Confidence: normalizeConfidence(parsed.Result.Confidence)}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ Client = (*HTTPClient)(nil)
