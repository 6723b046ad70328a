package volc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(baseURL string) *HTTPClient {
	c := NewClient(Config{
		AppID:        "app-1",
		AccessToken:  "token-1",
		BaseURL:      baseURL,
		PollInterval: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
	}, nil)
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{AppID: "a", AccessToken: "b"}, nil)

	if c.baseURL != "https://openspeech.bytedance.com/api/v3/auc/bigmodel" {
		t.Errorf("default baseURL = %q", c.baseURL)
	}
	if c.resourceID != "volc.bigasr.auc" {
		t.Errorf("default resourceID = %q", c.resourceID)
	}
	if c.pollInterval != 2*time.Second {
		t.Errorf("default pollInterval = %v", c.pollInterval)
	}
	if c.timeout != 3*time.Minute {
		t.Errorf("default timeout = %v", c.timeout)
	}
}

func TestHTTPClient_Transcribe_Success(t *testing.T) {
	var queries atomic.Int32
	var submittedID atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-App-Key") != "app-1" || r.Header.Get("X-Api-Access-Key") != "token-1" {
			t.Errorf("missing credentials headers")
		}
		if r.Header.Get("X-Api-Resource-Id") != "volc.bigasr.auc" {
			t.Errorf("X-Api-Resource-Id = %q", r.Header.Get("X-Api-Resource-Id"))
		}

		switch r.URL.Path {
		case "/submit":
			var req submitRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode submit body: %v", err)
			}
			if req.Audio.URL != "https://proxy.example/api/download?url=x" {
				t.Errorf("audio url = %q", req.Audio.URL)
			}
			id := r.Header.Get("X-Api-Request-Id")
			submittedID.Store(id)
			if id == "" {
				t.Error("submit without request id")
			}
			w.Header().Set("X-Api-Status-Code", StatusSuccess)
		case "/query":
			if got, want := r.Header.Get("X-Api-Request-Id"), submittedID.Load(); got != want {
				t.Errorf("query request id = %q, want %v", got, want)
			}
			switch queries.Add(1) {
			case 1:
				w.Header().Set("X-Api-Status-Code", StatusQueued)
				w.Write([]byte(`{}`))
			case 2:
				w.Header().Set("X-Api-Status-Code", StatusProcessing)
				w.Write([]byte(`{}`))
			default:
				w.Header().Set("X-Api-Status-Code", StatusSuccess)
				w.Write([]byte(`{"audio_info": {"duration": 12345}, "result": {"text": " 大家好 "}}`))
			}
		}
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Transcribe(context.Background(), "https://proxy.example/api/download?url=x")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if result.Text != "大家好" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Duration != 12.345 {
		t.Errorf("Duration = %v, want 12.345", result.Duration)
	}
	if queries.Load() != 3 {
		t.Errorf("queries = %d, want 3", queries.Load())
	}
}

func TestHTTPClient_Transcribe_SubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Api-Status-Code", "45000001")
		w.Header().Set("X-Api-Message", "invalid audio url")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transcribe(context.Background(), "bad")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.Code != "45000001" || statusErr.Message != "invalid audio url" {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func TestHTTPClient_Transcribe_TaskFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/submit" {
			w.Header().Set("X-Api-Status-Code", StatusSuccess)
			return
		}
		w.Header().Set("X-Api-Status-Code", "55000031")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transcribe(context.Background(), "u")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != "55000031" {
		t.Fatalf("error = %v, want task failure status", err)
	}
}

func TestHTTPClient_Transcribe_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad token"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transcribe(context.Background(), "u")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestHTTPClient_Transcribe_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/submit" {
			w.Header().Set("X-Api-Status-Code", StatusSuccess)
			return
		}
		w.Header().Set("X-Api-Status-Code", StatusProcessing)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.timeout = 50 * time.Millisecond

	_, err := c.Transcribe(context.Background(), "u")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}
