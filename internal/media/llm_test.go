package media

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestLLMClient_Summarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, expected bearer token", got)
		}

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Decode request failed: %v", err)
		}
		if payload.Model != "test-model" {
			t.Errorf("model = %q, expected test-model", payload.Model)
		}
		if len(payload.Messages) != 1 || payload.Messages[0].Content != "summarize me" {
			t.Errorf("Unexpected messages: %+v", payload.Messages)
		}

		io.WriteString(w, `{"choices": [{"message": {"content": " a fine summary "}}]}`)
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "test-key", "test-model", 5*time.Second, testLog())

	summary, err := client.Summarize(t.Context(), "summarize me")
	if err != nil {
		t.Fatalf("Summarize() failed: %v", err)
	}
	if summary != "a fine summary" {
		t.Errorf("Summarize() = %q, expected trimmed content", summary)
	}
}

func TestLLMClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices": []}`)
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "", "m", 5*time.Second, testLog())
	client.SetMaxRetryTime(time.Second)

	if _, err := client.Summarize(t.Context(), "text"); err == nil {
		t.Fatal("Expected error for response without content")
	}
}

func TestLLMClient_NoRetryOnClientError(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "wrong", "m", 5*time.Second, testLog())
	client.SetMaxRetryTime(2 * time.Second)

	if _, err := client.Summarize(t.Context(), "text"); err == nil {
		t.Fatal("Expected error for 401 response")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("Expected exactly 1 request for a client error, got %d", got)
	}
}

func TestLLMClient_RetriesServerError(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"choices": [{"message": {"content": "recovered"}}]}`)
	}))
	defer server.Close()

	client := NewLLMClient(server.URL, "", "m", 5*time.Second, testLog())
	client.SetMaxRetryTime(5 * time.Second)

	summary, err := client.Summarize(t.Context(), "text")
	if err != nil {
		t.Fatalf("Summarize() failed after retry: %v", err)
	}
	if summary != "recovered" {
		t.Errorf("Summarize() = %q, expected recovered", summary)
	}
}

func TestLLMClient_MissingEndpoint(t *testing.T) {
	client := NewLLMClient("", "", "m", 5*time.Second, testLog())
	if _, err := client.Summarize(t.Context(), "text"); err == nil {
		t.Fatal("Expected error when endpoint is not configured")
	}
}
