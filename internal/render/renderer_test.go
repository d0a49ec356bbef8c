package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autocv/internal/jobstore"
	"autocv/internal/personalize"
	"autocv/internal/profile"

	"go.uber.org/zap"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		Personal: profile.Personal{
			Nombre: "Ana", Apellidos: "García",
			Email: "ana@example.com", Telefono: "+34 600", Ciudad: "Madrid",
		},
		Education: []profile.Education{{Titulo: "Grado en Informática", Institucion: "UCM"}},
		Experience: []profile.Experience{
			{Puesto: "Backend Engineer", Empresa: "Acme", Inicio: "2021-03", Responsabilidades: []string{"APIs"}},
		},
		Languages: []profile.Language{{Idioma: "Inglés", Nivel: "C1"}},
		Skills:    profile.Skills{Tecnicas: []string{"Go"}},
	}
}

func testJob() *jobstore.Posting {
	return &jobstore.Posting{
		ID: "abc123def456", Title: "Senior Go Developer", Company: "Initech",
		URL: "https://example.com/jobs/1",
	}
}

func testResult() *personalize.Result {
	return &personalize.Result{
		Summary:     "Backend engineer focused on Go services.",
		Skills:      []string{"Go"},
		CoverLetter: "I am writing to apply for the role.",
		Experience: []profile.Experience{
			{Puesto: "Backend Engineer", Empresa: "Acme", Inicio: "2021-03", Responsabilidades: []string{"APIs"}},
		},
	}
}

func TestRenderCVDeterministic(t *testing.T) {
	r, err := NewRenderer("", zap.NewNop())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	a, err := r.RenderCV(testProfile(), testJob(), testResult(), now)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := r.RenderCV(testProfile(), testJob(), testResult(), now)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same inputs and timestamp must produce identical bytes")
	}

	html := string(a)
	for _, want := range []string{"Ana García", "Backend Engineer", "Acme", "Senior Go Developer", "2026-08-20"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered CV missing %q", want)
		}
	}
}

func TestRenderCoverLetterEscapesNothingFactual(t *testing.T) {
	r, err := NewRenderer("", zap.NewNop())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	out, err := r.RenderCoverLetter(testProfile(), testJob(), testResult(), now)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	for _, want := range []string{"Initech", "I am writing to apply", "Ana García", "20 August 2026"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered letter missing %q:\n%s", want, html)
		}
	}
}

func TestCustomTemplateOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	custom := `CUSTOM {{.Profile.Personal.Nombre}} for {{.Job.Company}}`
	if err := os.WriteFile(filepath.Join(dir, "cv.html.tmpl"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRenderer(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := r.RenderCV(testProfile(), testJob(), testResult(), time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(out); got != "CUSTOM Ana for Initech" {
		t.Fatalf("custom template not used: %q", got)
	}
}

// fakeConverter lets artifact tests run without Chrome or wkhtmltopdf.
type fakeConverter struct{ available bool }

func (f *fakeConverter) Convert(_ context.Context, html []byte) ([]byte, bool, error) {
	if !f.available {
		return nil, false, nil
	}
	return append([]byte("%PDF-fake\n"), html...), true, nil
}

func newTestWriter(t *testing.T, conv pdfConverter, format string) *ArtifactWriter {
	t.Helper()
	r, err := NewRenderer("", zap.NewNop())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	w, err := NewArtifactWriter(r, conv, t.TempDir(), format, zap.NewNop())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.SetClock(func() time.Time { return time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC) })
	return w
}

func TestWriteNamesArtifactsByJobHashAndStamp(t *testing.T) {
	w := newTestWriter(t, &fakeConverter{available: true}, "pdf")

	out, err := w.Write(context.Background(), testProfile(), testJob(), testResult())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(out.CVPath) != "cv_abc123de_20260820_093000.pdf" {
		t.Fatalf("cv name: %s", filepath.Base(out.CVPath))
	}
	if filepath.Base(out.LetterPath) != "carta_abc123de_20260820_093000.pdf" {
		t.Fatalf("letter name: %s", filepath.Base(out.LetterPath))
	}
	if out.Format != "pdf" {
		t.Fatalf("format: %s", out.Format)
	}
}

func TestWriteDowngradesToHTMLWithoutConverter(t *testing.T) {
	w := newTestWriter(t, &fakeConverter{available: false}, "pdf")

	out, err := w.Write(context.Background(), testProfile(), testJob(), testResult())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.Format != "html" {
		t.Fatalf("expected downgrade to html, got %s", out.Format)
	}
	if !strings.HasSuffix(out.CVPath, ".html") {
		t.Fatalf("cv path: %s", out.CVPath)
	}
	b, err := os.ReadFile(out.CVPath)
	if err != nil {
		t.Fatalf("read cv: %v", err)
	}
	if !strings.Contains(string(b), "Ana García") {
		t.Fatal("downgraded artifact must still hold the rendered HTML")
	}
}

func TestSetFormatAppliesToSubsequentWrites(t *testing.T) {
	w := newTestWriter(t, &fakeConverter{available: true}, "pdf")
	w.SetFormat("html")

	out, err := w.Write(context.Background(), testProfile(), testJob(), testResult())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.Format != "html" {
		t.Fatalf("format after SetFormat: %s", out.Format)
	}
	if !strings.HasSuffix(out.CVPath, ".html") {
		t.Fatalf("cv path: %s", out.CVPath)
	}

	w.SetFormat("pdf")
	if got := w.Format(); got != "pdf" {
		t.Fatalf("format after revert: %s", got)
	}
}

func TestListAndDeleteArtifacts(t *testing.T) {
	w := newTestWriter(t, &fakeConverter{available: false}, "html")

	if _, err := w.Write(context.Background(), testProfile(), testJob(), testResult()); err != nil {
		t.Fatalf("write: %v", err)
	}

	list, err := w.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected cv + carta, got %d", len(list))
	}
	kinds := map[string]bool{}
	for _, a := range list {
		kinds[a.Kind] = true
	}
	if !kinds["cv"] || !kinds["carta"] {
		t.Fatalf("kinds: %v", kinds)
	}

	if err := w.Delete(list[0].Name); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if w.Count() != 1 {
		t.Fatalf("count after delete: %d", w.Count())
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	w := newTestWriter(t, &fakeConverter{available: false}, "html")
	for _, bad := range []string{"../secret", "a/../../b", "/etc/passwd", ""} {
		if _, err := w.Path(bad); err == nil {
			t.Fatalf("Path(%q) must fail", bad)
		}
	}
}
