package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iconidentify/dyresolve/internal/domain"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockResolver is a test implementation of Resolver.
type mockResolver struct {
	rec    *domain.VideoRecord
	err    error
	inputs []string
}

func (m *mockResolver) Resolve(ctx context.Context, input string) (*domain.VideoRecord, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return domain.NewVideoRecord(input), m.err
	}
	return m.rec, nil
}

// mockPipeline is a test implementation of TranscriptPipeline.
type mockPipeline struct {
	transcript *domain.Transcript
	doc        *domain.SavedDocument
	err        error
	defaultTo  string
	emailedTo  string
}

func (m *mockPipeline) Transcript(ctx context.Context, input string) (*domain.Transcript, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.transcript, nil
}

func (m *mockPipeline) SaveToFeishu(ctx context.Context, input string) (*domain.SavedDocument, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

func (m *mockPipeline) Email(ctx context.Context, input, to string) error {
	if m.err != nil {
		return m.err
	}
	if to == "" {
		to = m.defaultTo
	}
	m.emailedTo = to
	return nil
}

func (m *mockPipeline) DefaultRecipient() string {
	return m.defaultTo
}

// mockFeatures is a test implementation of FeatureSet.
type mockFeatures map[string]bool

func (m mockFeatures) Features() map[string]bool {
	return m
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}
