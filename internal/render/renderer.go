package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"autocv/internal/jobstore"
	"autocv/internal/personalize"
	"autocv/internal/profile"

	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// cvData is what the CV template sees.
type cvData struct {
	Profile     *profile.Profile
	Job         *jobstore.Posting
	Summary     string
	Experience  []profile.Experience
	Skills      []string
	GeneratedAt string
}

// letterData is what the cover letter template sees.
type letterData struct {
	Profile *profile.Profile
	Job     *jobstore.Posting
	Letter  string
	Date    string
}

// Renderer turns a personalization result into HTML documents. Output is a
// pure function of (profile, job, result, now); nothing else leaks in.
type Renderer struct {
	cvTmpl     *template.Template
	letterTmpl *template.Template
	log        *zap.Logger
}

// NewRenderer loads templates from templatesDir when files exist there,
// falling back to the embedded defaults per file.
func NewRenderer(templatesDir string, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cvTmpl, err := loadTemplate(templatesDir, "cv.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("load cv template: %w", err)
	}
	letterTmpl, err := loadTemplate(templatesDir, "carta.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("load letter template: %w", err)
	}

	return &Renderer{cvTmpl: cvTmpl, letterTmpl: letterTmpl, log: log}, nil
}

func loadTemplate(dir, name string) (*template.Template, error) {
	if dir != "" {
		custom := filepath.Join(dir, name)
		if b, err := os.ReadFile(custom); err == nil {
			return template.New(name).Parse(string(b))
		}
	}
	b, err := builtinTemplates.ReadFile("templates/" + name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(b))
}

// RenderCV produces the tailored CV as HTML.
func (r *Renderer) RenderCV(prof *profile.Profile, job *jobstore.Posting, res *personalize.Result, now time.Time) ([]byte, error) {
	if prof == nil || job == nil || res == nil {
		return nil, fmt.Errorf("nil input")
	}
	exps := res.Experience
	if len(exps) == 0 {
		exps = prof.Experience
	}
	skills := res.Skills
	if len(skills) == 0 {
		skills = prof.AllSkills()
	}
	summary := res.Summary
	if summary == "" {
		summary = prof.Personal.Resumen
	}

	var buf bytes.Buffer
	err := r.cvTmpl.Execute(&buf, cvData{
		Profile:     prof,
		Job:         job,
		Summary:     summary,
		Experience:  exps,
		Skills:      skills,
		GeneratedAt: now.UTC().Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("render cv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderCoverLetter produces the cover letter as HTML.
func (r *Renderer) RenderCoverLetter(prof *profile.Profile, job *jobstore.Posting, res *personalize.Result, now time.Time) ([]byte, error) {
	if prof == nil || job == nil || res == nil {
		return nil, fmt.Errorf("nil input")
	}
	var buf bytes.Buffer
	err := r.letterTmpl.Execute(&buf, letterData{
		Profile: prof,
		Job:     job,
		Letter:  res.CoverLetter,
		Date:    now.UTC().Format("2 January 2006"),
	})
	if err != nil {
		return nil, fmt.Errorf("render cover letter: %w", err)
	}
	return buf.Bytes(), nil
}
