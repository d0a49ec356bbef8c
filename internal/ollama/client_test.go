package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-model", 5*time.Second), srv
}

func TestCheckConnection(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	})
	if !c.CheckConnection(context.Background()) {
		t.Fatal("expected reachable server to report true")
	}

	down := NewClient("http://127.0.0.1:1", "m", time.Second)
	if down.CheckConnection(context.Background()) {
		t.Fatal("expected unreachable server to report false")
	}
}

func TestListModelsDegradesToEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3.1:8b"},{"name":"mistral"}]}`))
	})
	got := c.ListModels(context.Background())
	if len(got) != 2 || got[0] != "llama3.1:8b" {
		t.Fatalf("unexpected models: %v", got)
	}

	broken, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if got := broken.ListModels(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty list on server error, got %v", got)
	}
}

func TestGenerateSendsOptionsAndReturnsResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["model"] != "test-model" {
			t.Fatalf("model not forwarded: %v", payload["model"])
		}
		if payload["stream"] != false {
			t.Fatal("stream must be false")
		}
		opts := payload["options"].(map[string]any)
		if opts["temperature"].(float64) != 0.2 {
			t.Fatalf("temperature not forwarded: %v", opts)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "hello"})
	})

	out, err := c.Generate(context.Background(), GenerateRequest{Prompt: "p", Temperature: 0.2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "hello" {
		t.Fatalf("got %q", out)
	}
}

func TestGenerateAppliesClientDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		opts := payload["options"].(map[string]any)
		if opts["temperature"].(float64) != 0.7 {
			t.Fatalf("default temperature not applied: %v", opts)
		}
		if opts["num_predict"].(float64) != 1024 {
			t.Fatalf("default num_predict not applied: %v", opts)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "m", time.Second, WithDefaults(0.7, 1024))
	if _, err := c.Generate(context.Background(), GenerateRequest{Prompt: "p"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
}

func TestGenerateErrorCarriesStatusAndBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`))
	})
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"404", "model not found"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestChat(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "hi there"},
		})
	})
	out, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 0.5)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "hi there" {
		t.Fatalf("got %q", out)
	}
}

func TestEmbeddings(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2}})
	})
	vec, err := c.Embeddings(context.Background(), "text")
	if err != nil {
		t.Fatalf("embeddings: %v", err)
	}
	if len(vec) != 2 || vec[1] != 0.2 {
		t.Fatalf("got %v", vec)
	}
}
