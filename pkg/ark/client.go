package ark

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

	"github.com/iconidentify/dyresolve/internal/config"
)

// MaxTitleRunes bounds generated titles.
const MaxTitleRunes = 30

// maxInputRunes caps the transcript sent in one prompt.
const maxInputRunes = 12000

// Client cleans up transcripts with a chat-completions model.
type Client interface {
	// Process corrects recognition errors and summarizes the transcript.
	Process(ctx context.Context, text string) (*ProcessResult, error)
	// GenerateTitle proposes a short title for the transcript.
	GenerateTitle(ctx context.Context, text string) (string, error)
}

// ProcessResult contains the corrected transcript and its summary.
type ProcessResult struct {
	Corrected string `json:"corrected"`
	Summary   string `json:"summary"`
}

// HTTPClient implements Client using the OpenAI-compatible Ark API.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Ark API client.
func NewClient(cfg config.AIConfig) *HTTPClient {
	return &HTTPClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

const processPrompt = `你是一名专业的中文文字编辑。下面是一段短视频的语音识别文本，可能包含同音错别字、断句错误和口语重复。
请完成两件事：
1. 纠正错别字并补全标点，保持原意和口吻，不要增删内容；
2. 用不超过100字概括视频的主要内容。
只返回 JSON：{"corrected": "纠正后的全文", "summary": "摘要"}`

const titlePrompt = `根据下面的短视频文案，拟一个不超过30个字的中文标题。只返回标题本身，不要引号和解释。`

// Process corrects and summarizes text.
func (c *HTTPClient) Process(ctx context.Context, text string) (*ProcessResult, error) {
	content, err := c.chat(ctx, processPrompt, truncateRunes(text, maxInputRunes), 0.2)
	if err != nil {
		return nil, err
	}

	var result ProcessResult
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &result); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	result.Corrected = strings.TrimSpace(result.Corrected)
	result.Summary = strings.TrimSpace(result.Summary)
	if result.Corrected == "" {
		result.Corrected = text
	}
	return &result, nil
}

// GenerateTitle returns a title of at most MaxTitleRunes runes.
func (c *HTTPClient) GenerateTitle(ctx context.Context, text string) (string, error) {
	content, err := c.chat(ctx, titlePrompt, truncateRunes(text, maxInputRunes), 0.7)
	if err != nil {
		return "", err
	}

	title := sanitizeTitle(content)
	if title == "" {
		return "", errors.New("empty title from model")
	}
	return title, nil
}

func (c *HTTPClient) chat(ctx context.Context, system, user string, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d, %s): %s", resp.StatusCode, time.Since(start).Round(time.Millisecond), string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("no response from model")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func sanitizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "标题：")
	s = strings.TrimPrefix(s, "标题:")
	s = strings.Trim(s, " \t\"'“”‘’《》「」")
	return truncateRunes(s, MaxTitleRunes)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
