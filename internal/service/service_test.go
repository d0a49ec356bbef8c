package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"autocv/internal/config"

	"go.uber.org/zap"
)

func newTestService(t *testing.T, ollamaHost string) *Service {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{}
	cfg.Ollama.Host = ollamaHost
	cfg.Ollama.Model = "llama3.1:8b"
	cfg.Ollama.TimeoutSecs = 5
	cfg.Paths.Profile = filepath.Join(dir, "profile.yaml")
	cfg.Paths.JobsDir = filepath.Join(dir, "jobs")
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.Render.Format = "pdf"
	cfg.Scraper.SearchLimit = 25
	cfg.Scraper.DescriptionWorkers = 2

	svc, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestStatusAndUpdateSettingsConcurrently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"llama3.1:8b"},{"name":"mistral:7b"}]}`)
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL)

	// Status reads the model client while UpdateSettings replaces it. Both
	// sides loop so the race detector sees every interleaving.
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				svc.Status(context.Background())
				svc.Settings()
			}
		}()
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				model := "llama3.1:8b"
				if (g+i)%2 == 0 {
					model = "mistral:7b"
				}
				if _, err := svc.UpdateSettings(Settings{OllamaModel: model, SearchLimit: 10 + i}); err != nil {
					t.Errorf("update settings: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	got := svc.Settings()
	if got.OllamaModel != "llama3.1:8b" && got.OllamaModel != "mistral:7b" {
		t.Fatalf("model after updates: %q", got.OllamaModel)
	}

	final, err := svc.UpdateSettings(Settings{OllamaModel: "phi3:mini"})
	if err != nil {
		t.Fatalf("final update: %v", err)
	}
	if final.OllamaModel != "phi3:mini" {
		t.Fatalf("final model: %q", final.OllamaModel)
	}
	if report := svc.Status(context.Background()); report.Model != "phi3:mini" {
		t.Fatalf("status model: %q", report.Model)
	}
}

func TestUpdateSettingsSwitchesRenderFormat(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	if got := svc.Artifacts.Format(); got != "pdf" {
		t.Fatalf("initial writer format: %q", got)
	}

	out, err := svc.UpdateSettings(Settings{RenderFormat: "html"})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if out.RenderFormat != "html" {
		t.Fatalf("settings format: %q", out.RenderFormat)
	}
	if got := svc.Artifacts.Format(); got != "html" {
		t.Fatalf("writer format after update: %q", got)
	}

	if _, err := svc.UpdateSettings(Settings{RenderFormat: "pdf"}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if got := svc.Artifacts.Format(); got != "pdf" {
		t.Fatalf("writer format after revert: %q", got)
	}
}

func TestUpdateSettingsRejectsUnknownFormat(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")
	if _, err := svc.UpdateSettings(Settings{RenderFormat: "docx"}); err == nil {
		t.Fatal("expected error for unknown render format")
	}
	if got := svc.Artifacts.Format(); got != "pdf" {
		t.Fatalf("rejected update must not touch the writer, got %q", got)
	}
}
