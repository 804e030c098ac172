package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/flemzord/recall/internal/provider"
)

func TestFormatPrompt(t *testing.T) {
	t.Parallel()

	got := formatPrompt(provider.CompletionRequest{
		System: "Be kind.",
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleUser, Content: "hello"},
			{Role: provider.MessageRoleAssistant, Content: "hi"},
			{Role: provider.MessageRoleUser, Content: "how are you"},
		},
	})
	want := "System: Be kind.\n\nUser: hello\nAssistant: hi\nUser: how are you\nAssistant:"
	if got != want {
		t.Errorf("formatPrompt() = %q, want %q", got, want)
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":          "Hello from llama",
			"done_reason":       "stop",
			"prompt_eval_count": 7,
			"eval_count":        4,
		})
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL + "/", Model: "tiny"}, nil, nil)
	resp, err := p.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "Hello from llama" || resp.Usage.TotalTokens != 11 {
		t.Errorf("Complete() = %+v", resp)
	}
	if got.Model != "tiny" || got.Stream {
		t.Errorf("request = %+v, want model tiny without streaming", got)
	}
	if p.ModelName() != "tiny" {
		t.Errorf("ModelName() = %q, want tiny", p.ModelName())
	}
}

func TestComplete_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantDown bool
		wantErr  error
	}{
		{"server error", 500, "boom", true, provider.ErrProviderDown},
		{"not found", 404, "model not found", false, nil},
		{"empty response", 200, `{"response":""}`, false, provider.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(Config{BaseURL: srv.URL}, nil, nil).Complete(context.Background(), provider.CompletionRequest{})
			if err == nil {
				t.Fatal("Complete() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Complete() error = %v, want %v", err, tt.wantErr)
			}
			if got := provider.IsRetryable(err); got != tt.wantDown {
				t.Errorf("IsRetryable(%v) = %v, want %v", err, got, tt.wantDown)
			}
		})
	}
}
