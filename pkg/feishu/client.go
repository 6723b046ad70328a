package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/dyresolve/internal/config"
	"github.com/iconidentify/dyresolve/internal/domain"
)

// maxBlocksPerRequest is the most children the block API accepts per call.
const maxBlocksPerRequest = 50

// maxTextRunes keeps a single text block under the API's element size limit.
const maxTextRunes = 2000

// Block types used by the docx API.
const (
	blockTypeText     = 2
	blockTypeHeading2 = 4
)

// APIError is a non-zero code in a Feishu response envelope.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feishu error %d: %s", e.Code, e.Msg)
}

// tokenExpired reports codes that mean the tenant token must be refetched.
func (e *APIError) tokenExpired() bool {
	return e.Code == 99991661 || e.Code == 99991663
}

// DocumentStore saves transcripts as documents.
type DocumentStore interface {
	SaveTranscript(ctx context.Context, t *domain.Transcript) (*domain.SavedDocument, error)
}

// Client writes transcripts into Feishu docx documents.
type Client struct {
	baseURL     string
	docBaseURL  string
	folderToken string
	tokens      TokenSource
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a new Feishu client.
func NewClient(cfg config.FeishuConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		baseURL:     baseURL,
		docBaseURL:  cfg.DocBaseURL,
		folderToken: cfg.FolderToken,
		tokens:      NewTenantTokenSource(baseURL, cfg.AppID, cfg.AppSecret, hc),
		httpClient:  hc,
		logger:      logger,
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type createDocumentData struct {
	Document struct {
		DocumentID string `json:"document_id"`
		Title      string `json:"title"`
	} `json:"document"`
}

type block struct {
	BlockType int        `json:"block_type"`
	Text      *textBlock `json:"text,omitempty"`
	Heading2  *textBlock `json:"heading2,omitempty"`
}

type textBlock struct {
	Elements []textElement `json:"elements"`
}

type textElement struct {
	TextRun textRun `json:"text_run"`
}

type textRun struct {
	Content string `json:"content"`
}

// SaveTranscript creates a document holding t and returns its URL.
func (c *Client) SaveTranscript(ctx context.Context, t *domain.Transcript) (*domain.SavedDocument, error) {
	title := t.Title
	if title == "" {
		title = domain.FallbackTitle
	}

	docID, err := c.createDocument(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	blocks := transcriptBlocks(t)
	for start := 0; start < len(blocks); start += maxBlocksPerRequest {
		end := min(start+maxBlocksPerRequest, len(blocks))
		if err := c.appendBlocks(ctx, docID, blocks[start:end]); err != nil {
			return nil, fmt.Errorf("append blocks %d-%d: %w", start, end, err)
		}
	}

	c.logger.Info("transcript saved to feishu",
		"document_id", docID,
		"title", title,
		"blocks", len(blocks),
	)

	return &domain.SavedDocument{
		URL:   c.docBaseURL + docID,
		Title: title,
	}, nil
}

func (c *Client) createDocument(ctx context.Context, title string) (string, error) {
	payload := map[string]string{"title": title}
	if c.folderToken != "" {
		payload["folder_token"] = c.folderToken
	}

	var data createDocumentData
	if err := c.call(ctx, "/docx/v1/documents", payload, &data); err != nil {
		return "", err
	}
	if data.Document.DocumentID == "" {
		return "", fmt.Errorf("no document id in response")
	}
	return data.Document.DocumentID, nil
}

func (c *Client) appendBlocks(ctx context.Context, docID string, children []block) error {
	q := url.Values{}
	q.Set("document_revision_id", "-1")
	q.Set("client_token", uuid.NewString())

	path := fmt.Sprintf("/docx/v1/documents/%s/blocks/%s/children?%s",
		url.PathEscape(docID), url.PathEscape(docID), q.Encode())

	return c.call(ctx, path, map[string]any{
		"children": children,
		"index":    -1,
	}, nil)
}

// call POSTs payload and decodes the envelope's data into out. An expired
// token is refetched once.
func (c *Client) call(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err := c.post(ctx, path, body, out)
		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.tokenExpired() || attempt > 0 {
			return err
		}
		c.tokens.Invalidate()
	}
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("tenant token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.logger.Debug("feishu call", "path", path, "duration", time.Since(start))

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return nil
}

// transcriptBlocks lays out metadata, the summary and the transcript body.
func transcriptBlocks(t *domain.Transcript) []block {
	var blocks []block

	if t.Author != "" {
		blocks = append(blocks, textBlockOf("作者："+t.Author))
	}
	if t.SourceURL != "" {
		blocks = append(blocks, textBlockOf("来源："+t.SourceURL))
	}
	if t.Duration > 0 {
		blocks = append(blocks, textBlockOf(fmt.Sprintf("时长：%.1f 秒", t.Duration)))
	}

	if t.Summary != "" {
		blocks = append(blocks, headingBlockOf("摘要"))
		blocks = append(blocks, textBlockOf(t.Summary))
	}

	blocks = append(blocks, headingBlockOf("文案"))
	for _, para := range splitParagraphs(t.Text) {
		blocks = append(blocks, textBlockOf(para))
	}
	return blocks
}

func textBlockOf(s string) block {
	return block{BlockType: blockTypeText, Text: &textBlock{Elements: []textElement{{TextRun: textRun{Content: s}}}}}
}

func headingBlockOf(s string) block {
	return block{BlockType: blockTypeHeading2, Heading2: &textBlock{Elements: []textElement{{TextRun: textRun{Content: s}}}}}
}

// splitParagraphs returns the non-empty lines of text, each capped at
// maxTextRunes.
func splitParagraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		for len(r) > maxTextRunes {
			out = append(out, string(r[:maxTextRunes]))
			r = r[maxTextRunes:]
		}
		out = append(out, string(r))
	}
	return out
}
