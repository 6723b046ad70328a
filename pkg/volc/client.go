package volc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status codes carried in the X-Api-Status-Code response header.
const (
	StatusSuccess    = "20000000"
	StatusProcessing = "20000001"
	StatusQueued     = "20000002"
)

// Transcriber converts the speech in a remote media file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (*Result, error)
}

// Result contains the transcription result.
type Result struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"` // seconds
}

// StatusError is returned when the vendor reports a failed task.
type StatusError struct {
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "asr status " + e.Code
	}
	return fmt.Sprintf("asr status %s: %s", e.Code, e.Message)
}

// Config for creating a new ASR client.
type Config struct {
	AppID        string
	AccessToken  string
	BaseURL      string        // Optional, defaults to the big-model file endpoint
	ResourceID   string        // Optional, defaults to "volc.bigasr.auc"
	PollInterval time.Duration // Optional, defaults to 2 seconds
	Timeout      time.Duration // Optional, overall bound for one transcription, defaults to 3 minutes
}

// HTTPClient implements Transcriber against the Volcengine big-model ASR API.
type HTTPClient struct {
	appID        string
	accessToken  string
	baseURL      string
	resourceID   string
	pollInterval time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a new ASR client.
func NewClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openspeech.bytedance.com/api/v3/auc/bigmodel"
	}
	if cfg.ResourceID == "" {
		cfg.ResourceID = "volc.bigasr.auc"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		appID:        cfg.AppID,
		accessToken:  cfg.AccessToken,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		resourceID:   cfg.ResourceID,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type submitRequest struct {
	User    submitUser    `json:"user"`
	Audio   submitAudio   `json:"audio"`
	Request submitOptions `json:"request"`
}

type submitUser struct {
	UID string `json:"uid"`
}

type submitAudio struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

type submitOptions struct {
	ModelName  string `json:"model_name"`
	EnableITN  bool   `json:"enable_itn"`
	EnablePunc bool   `json:"enable_punc"`
}

type queryResponse struct {
	AudioInfo struct {
		Duration float64 `json:"duration"` // milliseconds
	} `json:"audio_info"`
	Result struct {
		Text string `json:"text"`
	} `json:"result"`
}

// Transcribe submits audioURL as a task and polls until it finishes, fails,
// or the configured timeout elapses.
func (c *HTTPClient) Transcribe(ctx context.Context, audioURL string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	if err := c.submit(ctx, requestID, audioURL); err != nil {
		return nil, fmt.Errorf("submit task: %w", err)
	}
	c.logger.Info("asr task submitted", "request_id", requestID)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for task %s: %w", requestID, ctx.Err())
		case <-ticker.C:
		}

		result, done, err := c.query(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("query task: %w", err)
		}
		if done {
			c.logger.Info("asr task complete",
				"request_id", requestID,
				"duration_seconds", result.Duration,
				"text_length", len([]rune(result.Text)),
			)
			return result, nil
		}
	}
}

func (c *HTTPClient) submit(ctx context.Context, requestID, audioURL string) error {
	body, err := json.Marshal(submitRequest{
		User:  submitUser{UID: c.appID},
		Audio: submitAudio{URL: audioURL, Format: "mp4"},
		Request: submitOptions{
			ModelName:  "bigmodel",
			EnableITN:  true,
			EnablePunc: true,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.do(ctx, "/submit", requestID, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if code := resp.Header.Get("X-Api-Status-Code"); code != StatusSuccess {
		return &StatusError{Code: code, Message: resp.Header.Get("X-Api-Message")}
	}
	return nil
}

// query returns done=false while the task is queued or processing.
func (c *HTTPClient) query(ctx context.Context, requestID string) (*Result, bool, error) {
	resp, err := c.do(ctx, "/query", requestID, []byte("{}"))
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	switch code := resp.Header.Get("X-Api-Status-Code"); code {
	case StatusProcessing, StatusQueued:
		return nil, false, nil
	case StatusSuccess:
	default:
		return nil, false, &StatusError{Code: code, Message: resp.Header.Get("X-Api-Message")}
	}

	var qr queryResponse
	if err := json.Unmarshal(respBody, &qr); err != nil {
		return nil, false, fmt.Errorf("unmarshal response: %w", err)
	}

	return &Result{
		Text:     strings.TrimSpace(qr.Result.Text),
		Duration: qr.AudioInfo.Duration / 1000,
	}, true, nil
}

func (c *HTTPClient) do(ctx context.Context, path, requestID string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-App-Key", c.appID)
	req.Header.Set("X-Api-Access-Key", c.accessToken)
	req.Header.Set("X-Api-Resource-Id", c.resourceID)
	req.Header.Set("X-Api-Request-Id", requestID)
	req.Header.Set("X-Api-Sequence", "-1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(msg))
	}
	return resp, nil
}
