package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"autocv/internal/jobstore"
	"autocv/internal/personalize"
	"autocv/internal/profile"

	"go.uber.org/zap"
)

// Artifact is one generated document in the output directory.
type Artifact struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // "cv" or "carta"
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Output is the outcome of generating documents for one job.
type Output struct {
	CVPath     string `json:"cv_path"`
	LetterPath string `json:"letter_path"`
	Format     string `json:"format"` // "pdf" or "html" after any downgrade
}

// pdfConverter is the slice of PDFConverter the writer needs.
type pdfConverter interface {
	Convert(ctx context.Context, html []byte) (pdf []byte, ok bool, err error)
}

// ArtifactWriter renders, converts and names output documents.
type ArtifactWriter struct {
	renderer  *Renderer
	converter pdfConverter
	outputDir string
	log       *zap.Logger

	formatMu sync.RWMutex
	format   string

	now func() time.Time
}

func NewArtifactWriter(renderer *Renderer, converter pdfConverter, outputDir, format string, log *zap.Logger) (*ArtifactWriter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if format != "html" {
		format = "pdf"
	}
	return &ArtifactWriter{
		renderer:  renderer,
		converter: converter,
		outputDir: outputDir,
		format:    format,
		log:       log,
		now:       time.Now,
	}, nil
}

// SetClock pins the timestamp source. Used in tests.
func (w *ArtifactWriter) SetClock(now func() time.Time) {
	if now != nil {
		w.now = now
	}
}

// SetFormat changes the output format for subsequent writes. Anything but
// "html" means "pdf".
func (w *ArtifactWriter) SetFormat(format string) {
	if format != "html" {
		format = "pdf"
	}
	w.formatMu.Lock()
	w.format = format
	w.formatMu.Unlock()
}

// Format returns the currently requested output format.
func (w *ArtifactWriter) Format() string {
	w.formatMu.RLock()
	defer w.formatMu.RUnlock()
	return w.format
}

// Write renders the CV and cover letter for one personalization run. When
// the requested format is pdf but no converter is available, both files
// downgrade to HTML and Output.Format says so.
func (w *ArtifactWriter) Write(ctx context.Context, prof *profile.Profile, job *jobstore.Posting, res *personalize.Result) (*Output, error) {
	now := w.now().UTC()

	cvHTML, err := w.renderer.RenderCV(prof, job, res, now)
	if err != nil {
		return nil, err
	}
	letterHTML, err := w.renderer.RenderCoverLetter(prof, job, res, now)
	if err != nil {
		return nil, err
	}

	format := w.Format()
	cvBytes, letterBytes := cvHTML, letterHTML
	if format == "pdf" && w.converter == nil {
		format = "html"
		w.log.Warn("no pdf converter configured, writing html instead")
	}
	if format == "pdf" {
		cvPDF, okCV, err := w.converter.Convert(ctx, cvHTML)
		if err != nil {
			return nil, fmt.Errorf("convert cv: %w", err)
		}
		letterPDF, okLetter, err := w.converter.Convert(ctx, letterHTML)
		if err != nil {
			return nil, fmt.Errorf("convert letter: %w", err)
		}
		if okCV && okLetter {
			cvBytes, letterBytes = cvPDF, letterPDF
		} else {
			format = "html"
			w.log.Warn("pdf conversion unavailable, writing html instead")
		}
	}

	stamp := now.Format("20060102_150405")
	hash := jobHash(job)
	cvName := fmt.Sprintf("cv_%s_%s.%s", hash, stamp, format)
	letterName := fmt.Sprintf("carta_%s_%s.%s", hash, stamp, format)

	cvPath := filepath.Join(w.outputDir, cvName)
	letterPath := filepath.Join(w.outputDir, letterName)
	if err := os.WriteFile(cvPath, cvBytes, 0o644); err != nil {
		return nil, fmt.Errorf("write cv: %w", err)
	}
	if err := os.WriteFile(letterPath, letterBytes, 0o644); err != nil {
		return nil, fmt.Errorf("write letter: %w", err)
	}

	w.log.Info("artifacts written",
		zap.String("cv", cvName),
		zap.String("letter", letterName),
		zap.String("format", format),
	)
	return &Output{CVPath: cvPath, LetterPath: letterPath, Format: format}, nil
}

func jobHash(job *jobstore.Posting) string {
	id := job.ID
	if id == "" {
		id = jobstore.StableID(job.Title, job.Company, job.URL)
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// List returns generated artifacts, newest first.
func (w *ArtifactWriter) List() ([]Artifact, error) {
	entries, err := os.ReadDir(w.outputDir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	out := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind := ""
		switch {
		case strings.HasPrefix(e.Name(), "cv_"):
			kind = "cv"
		case strings.HasPrefix(e.Name(), "carta_"):
			kind = "carta"
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{
			Name:      e.Name(),
			Kind:      kind,
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Path resolves an artifact name inside the output dir, rejecting anything
// that would escape it.
func (w *ArtifactWriter) Path(name string) (string, error) {
	clean := filepath.Base(strings.TrimSpace(name))
	if clean == "" || clean == "." || clean != name {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	p := filepath.Join(w.outputDir, clean)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("artifact %s: %w", name, err)
	}
	return p, nil
}

// Delete removes one artifact by name.
func (w *ArtifactWriter) Delete(name string) error {
	p, err := w.Path(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// Count returns the number of generated artifacts.
func (w *ArtifactWriter) Count() int {
	list, err := w.List()
	if err != nil {
		return 0
	}
	return len(list)
}
