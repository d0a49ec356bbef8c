package personalize

import (
	"context"
	"fmt"
	"strings"

	"autocv/internal/jobstore"
	"autocv/internal/ollama"
	"autocv/internal/profile"

	"go.uber.org/zap"
)

// Generator is the slice of the LLM client the personalizer needs.
type Generator interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (string, error)
}

// JobAnalysis is the structured read of a posting, step one of the pipeline.
type JobAnalysis struct {
	RequiredSkills []string `json:"required_skills"`
	NiceToHave     []string `json:"nice_to_have"`
	Seniority      string   `json:"seniority"`
	Keywords       []string `json:"keywords"`
	Summary        string   `json:"summary"`
}

// Result carries everything the renderer needs, plus notes about steps that
// fell back to their degraded path.
type Result struct {
	Analysis        JobAnalysis          `json:"analysis"`
	MatchScore      int                  `json:"match_score"`
	Summary         string               `json:"summary"`
	ExperienceOrder []int                `json:"experience_order"`
	Skills          []string             `json:"skills"`
	CoverLetter     string               `json:"cover_letter"`
	Degraded        []string             `json:"degraded,omitempty"`
	Experience      []profile.Experience `json:"-"`
}

// Step temperatures. The factual steps run cold, prose steps warmer.
const (
	tempAnalyze     = 0.2
	tempMatchScore  = 0.1
	tempSummary     = 0.4
	tempReorder     = 0.3
	tempSkills      = 0.2
	tempCoverLetter = 0.6
)

type Personalizer struct {
	gen Generator
	log *zap.Logger
}

func NewPersonalizer(gen Generator, log *zap.Logger) *Personalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Personalizer{gen: gen, log: log}
}

// Personalize runs the six ordered model calls for one posting. Structured
// steps degrade to documented fallbacks on bad model output; only transport
// failures abort the run.
func (p *Personalizer) Personalize(ctx context.Context, prof *profile.Profile, job *jobstore.Posting) (*Result, error) {
	if prof == nil || job == nil {
		return nil, fmt.Errorf("nil profile or job")
	}

	profileText := prof.PlainText()
	res := &Result{}

	analysis, degraded, err := p.analyzeJob(ctx, job.Description)
	if err != nil {
		return nil, fmt.Errorf("analyze job: %w", err)
	}
	res.Analysis = analysis
	if degraded != "" {
		res.Degraded = append(res.Degraded, degraded)
	}

	score, err := p.matchScore(ctx, profileText, analysis.Summary, job.Description)
	if err != nil {
		return nil, fmt.Errorf("match score: %w", err)
	}
	res.MatchScore = score

	summary, err := p.gen.Generate(ctx, ollama.GenerateRequest{
		Prompt:      summaryPrompt(profileText, job.Description),
		System:      systemFactual,
		Temperature: tempSummary,
	})
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	res.Summary = strings.TrimSpace(summary)

	order, degraded, err := p.reorderExperience(ctx, prof.Experience, job.Description)
	if err != nil {
		return nil, fmt.Errorf("reorder experience: %w", err)
	}
	res.ExperienceOrder = order
	if degraded != "" {
		res.Degraded = append(res.Degraded, degraded)
	}
	res.Experience = make([]profile.Experience, 0, len(order))
	for _, i := range order {
		res.Experience = append(res.Experience, prof.Experience[i])
	}

	skills, degraded, err := p.filterSkills(ctx, prof.AllSkills(), job.Description)
	if err != nil {
		return nil, fmt.Errorf("filter skills: %w", err)
	}
	res.Skills = skills
	if degraded != "" {
		res.Degraded = append(res.Degraded, degraded)
	}

	letter, err := p.gen.Generate(ctx, ollama.GenerateRequest{
		Prompt:      coverLetterPrompt(profileText, job.Company, job.Title, job.Description),
		System:      systemFactual,
		Temperature: tempCoverLetter,
	})
	if err != nil {
		return nil, fmt.Errorf("cover letter: %w", err)
	}
	res.CoverLetter = strings.TrimSpace(letter)

	p.log.Info("personalization complete",
		zap.String("job_id", job.ID),
		zap.Int("match_score", res.MatchScore),
		zap.Strings("degraded_steps", res.Degraded),
	)
	return res, nil
}

func (p *Personalizer) analyzeJob(ctx context.Context, description string) (JobAnalysis, string, error) {
	raw, err := p.gen.Generate(ctx, ollama.GenerateRequest{
		Prompt:      analyzeJobPrompt(description),
		Temperature: tempAnalyze,
	})
	if err != nil {
		return JobAnalysis{}, "", err
	}
	var a JobAnalysis
	if err := extractJSONObject(raw, &a); err != nil {
		p.log.Warn("job analysis not parseable, using raw text", zap.Error(err))
		return JobAnalysis{Summary: strings.TrimSpace(raw)}, "analysis", nil
	}
	return a, "", nil
}

func (p *Personalizer) matchScore(ctx context.Context, profileText, analysisSummary, description string) (int, error) {
	raw, err := p.gen.Generate(ctx, ollama.GenerateRequest{
		Prompt:      matchScorePrompt(profileText, analysisSummary, description),
		Temperature: tempMatchScore,
	})
	if err != nil {
		return 0, err
	}
	return parseScore(raw), nil
}

func (p *Personalizer) reorderExperience(ctx context.Context, exps []profile.Experience, description string) ([]int, string, error) {
	original := make([]int, len(exps))
	for i := range original {
		original[i] = i
	}
	if len(exps) < 2 {
		return original, "", nil
	}

	lines := make([]string, len(exps))
	for i, e := range exps {
		lines[i] = fmt.Sprintf("%s at %s", e.Puesto, e.Empresa)
	}
	raw, err := p.gen.Generate(ctx, ollama.GenerateRequest{
		Prompt:      reorderExperiencePrompt(lines, description),
		Temperature: tempReorder,
	})
	if err != nil {
		return nil, "", err
	}

	var idx []int
	if err := extractJSONArray(raw, &idx); err != nil || !validPermutation(idx, len(exps)) {
		p.log.Warn("experience reorder not usable, keeping original order")
		return original, "experience_order", nil
	}
	return idx, "", nil
}

func (p *Personalizer) filterSkills(ctx context.Context, skills []string, description string) ([]string, string, error) {
	if len(skills) == 0 {
		return nil, "", nil
	}
	raw, err := p.gen.Generate(ctx, ollama.GenerateRequest{
		Prompt:      filterSkillsPrompt(skills, description),
		Temperature: tempSkills,
	})
	if err != nil {
		return nil, "", err
	}

	var picked []string
	if err := extractJSONArray(raw, &picked); err != nil {
		p.log.Warn("skill filter not parseable, keeping full list")
		return skills, "skills", nil
	}

	// Keep only names actually in the profile; a hallucinated skill never
	// makes it into the rendered CV.
	known := make(map[string]string, len(skills))
	for _, s := range skills {
		known[strings.ToLower(strings.TrimSpace(s))] = s
	}
	out := make([]string, 0, len(picked))
	seen := map[string]bool{}
	for _, s := range picked {
		key := strings.ToLower(strings.TrimSpace(s))
		orig, ok := known[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, orig)
	}
	if len(out) == 0 {
		return skills, "skills", nil
	}
	return out, "", nil
}
