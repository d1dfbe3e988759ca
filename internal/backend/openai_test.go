package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/record"
)

// fakeOpenAI serves a minimal OpenAI-compatible surface: a model list
// and a streaming chat completion with three content chunks plus a
// usage-bearing final chunk.
func fakeOpenAI(t *testing.T, status int) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"test-model","object":"model"}]}`)
	})

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		for _, word := range []string{"hello", " stream", " world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", word)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":7,\"completion_tokens\":3}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	})

	return httptest.NewServer(mux)
}

func collectEvents(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestOpenAIAdapterStreamsChatEvents(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK)
	defer srv.Close()

	clk := clock.New()
	a := NewOpenAIAdapter(srv.URL+"/v1", "key", "test-model", clk)

	payload := record.Payload{
		Kind:      record.KindChat,
		Messages:  []record.Message{{Role: "user", Content: "hi"}},
		MaxTokens: 16,
	}
	events := collectEvents(a.Execute(context.Background(), payload, 0))

	if len(events) == 0 {
		t.Fatal("no events received")
	}
	if events[0].Kind != EventFirstByte {
		t.Fatalf("first event must be FirstByte, got %v", events[0].Kind)
	}
	last := events[len(events)-1]
	if last.Kind != EventDone {
		t.Fatalf("last event must be Done, got %v (err=%v)", last.Kind, last.Err)
	}
	if last.PromptTokens != 7 || last.OutputTokens != 3 {
		t.Errorf("usage not propagated: prompt=%d output=%d", last.PromptTokens, last.OutputTokens)
	}

	tokens := 0
	var prev int64
	for _, ev := range events {
		if ev.Time < prev {
			t.Errorf("event timestamps must be non-decreasing: %d after %d", ev.Time, prev)
		}
		prev = ev.Time
		if ev.Kind == EventToken {
			tokens++
		}
	}
	if tokens != 3 {
		t.Errorf("expected 3 token events, got %d", tokens)
	}
}

func TestOpenAIAdapterClassifiesHTTPStatus(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusInternalServerError)
	defer srv.Close()

	clk := clock.New()
	a := NewOpenAIAdapter(srv.URL+"/v1", "key", "test-model", clk)

	payload := record.Payload{Kind: record.KindChat, Prompt: "hi", MaxTokens: 16}
	events := collectEvents(a.Execute(context.Background(), payload, 0))

	last := events[len(events)-1]
	if last.Kind != EventError {
		t.Fatalf("expected terminal error event, got %v", last.Kind)
	}
	if last.ErrorKind != record.ErrorHTTPStatus {
		t.Errorf("expected http_status classification, got %s", last.ErrorKind)
	}
}

func TestProbeFindsConfiguredModel(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK)
	defer srv.Close()

	clk := clock.New()
	a := NewOpenAIAdapter(srv.URL+"/v1", "key", "test-model", clk)
	if err := a.Probe(context.Background()); err != nil {
		t.Fatalf("probe against live fake failed: %v", err)
	}

	missing := NewOpenAIAdapter(srv.URL+"/v1", "key", "absent-model", clk)
	if err := missing.Probe(context.Background()); err == nil {
		t.Fatal("probe must fail when the model is not listed")
	}
}

func TestDiscoverModels(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK)
	defer srv.Close()

	a := NewOpenAIAdapter(srv.URL+"/v1", "key", "", clock.New())
	models, err := a.DiscoverModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0] != "test-model" {
		t.Errorf("unexpected model list: %v", models)
	}
}

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"two words", 2},
		{"a longer stretch of text here", 7},
	}
	for _, tc := range cases {
		if got := estimateTokens(tc.in); got != tc.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
