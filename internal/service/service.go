package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autocv/internal/config"
	"autocv/internal/jobstore"
	"autocv/internal/ollama"
	"autocv/internal/personalize"
	"autocv/internal/profile"
	"autocv/internal/render"
	"autocv/internal/scraper"
	"autocv/internal/task"

	"go.uber.org/zap"
)

// Service wires the whole pipeline together: profile, scraper, model
// client, renderer and the single-task runner. The CLI and the dashboard
// both sit on top of it.
type Service struct {
	mu  sync.RWMutex
	cfg config.Config

	Jobs      *jobstore.Store
	Artifacts *render.ArtifactWriter
	Tasks     *task.Manager

	// llm and personalizer are swapped together under mu when settings
	// change; read them through clients().
	llm          *ollama.Client
	personalizer *personalize.Personalizer
	log          *zap.Logger

	statusMu      sync.Mutex
	statusChecked time.Time
	statusOK      bool
	statusModels  []string
}

// ollamaStatusTTL bounds how often the dashboard pings the model server.
const ollamaStatusTTL = 30 * time.Second

func New(cfg config.Config, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}

	jobs, err := jobstore.NewStore(cfg.Paths.JobsDir, log)
	if err != nil {
		return nil, err
	}

	renderer, err := render.NewRenderer(cfg.Paths.Templates, log)
	if err != nil {
		return nil, err
	}
	converter := render.NewPDFConverter(cfg.Render.WkhtmltopdfBin, log)
	artifacts, err := render.NewArtifactWriter(renderer, converter, cfg.Paths.OutputDir, cfg.Render.Format, log)
	if err != nil {
		return nil, err
	}

	client := ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Ollama.Timeout(),
		ollama.WithDefaults(cfg.Ollama.Temperature, cfg.Ollama.NumPredict))

	return &Service{
		cfg:          cfg,
		Jobs:         jobs,
		Artifacts:    artifacts,
		Tasks:        task.NewManager(log),
		llm:          client,
		personalizer: personalize.NewPersonalizer(client, log),
		log:          log,
	}, nil
}

// clients returns the current model client and personalizer as one
// consistent pair.
func (s *Service) clients() (*ollama.Client, *personalize.Personalizer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llm, s.personalizer
}

// Config returns a copy of the current configuration.
func (s *Service) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// StatusReport is the dashboard's health view.
type StatusReport struct {
	OllamaOK      bool          `json:"ollama_ok"`
	OllamaHost    string        `json:"ollama_host"`
	Model         string        `json:"model"`
	Models        []string      `json:"models"`
	ProfileOK     bool          `json:"profile_ok"`
	ProfileIssues int           `json:"profile_issues"`
	JobCount      int           `json:"job_count"`
	ArtifactCount int           `json:"artifact_count"`
	Task          task.Snapshot `json:"task"`
}

// Status gathers the health report. The Ollama probe is cached for 30s so a
// polling dashboard does not hammer the model server.
func (s *Service) Status(ctx context.Context) StatusReport {
	cfg := s.Config()

	llm, _ := s.clients()

	s.statusMu.Lock()
	if time.Since(s.statusChecked) > ollamaStatusTTL {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		s.statusOK = llm.CheckConnection(probeCtx)
		if s.statusOK {
			s.statusModels = llm.ListModels(probeCtx)
		} else {
			s.statusModels = nil
		}
		cancel()
		s.statusChecked = time.Now()
	}
	ok, models := s.statusOK, s.statusModels
	s.statusMu.Unlock()

	report := StatusReport{
		OllamaOK:      ok,
		OllamaHost:    cfg.Ollama.Host,
		Model:         cfg.Ollama.Model,
		Models:        models,
		JobCount:      s.Jobs.Count(),
		ArtifactCount: s.Artifacts.Count(),
		Task:          s.Tasks.Status(),
	}

	if prof, err := profile.Load(cfg.Paths.Profile); err == nil {
		issues := prof.Validate()
		report.ProfileOK = len(issues) == 0
		report.ProfileIssues = len(issues)
	}
	return report
}

// Profile loads the candidate document.
func (s *Service) Profile() (*profile.Profile, error) {
	return profile.Load(s.Config().Paths.Profile)
}

// SaveProfile validates and persists the candidate document. Validation
// issues are returned without saving.
func (s *Service) SaveProfile(p *profile.Profile) ([]profile.Issue, error) {
	if p == nil {
		return nil, fmt.Errorf("nil profile")
	}
	if issues := p.Validate(); len(issues) > 0 {
		return issues, nil
	}
	return nil, profile.Save(s.Config().Paths.Profile, p)
}

// SearchRequest is one search task. Blank filter fields fall back to the
// configured defaults.
type SearchRequest struct {
	Query    string          `json:"query"`
	Location string          `json:"location"`
	Filters  scraper.Filters `json:"filters"`
	Limit    int             `json:"limit"`
}

// StartSearch claims the task slot and runs the scrape in the background.
func (s *Service) StartSearch(req SearchRequest) (task.Snapshot, error) {
	if req.Query == "" {
		return task.Snapshot{}, fmt.Errorf("query is required")
	}
	h, err := s.Tasks.Start("search")
	if err != nil {
		return task.Snapshot{}, err
	}
	go func() {
		h.Finish(s.runSearch(context.Background(), h, req))
	}()
	return s.Tasks.Status(), nil
}

func (s *Service) runSearch(ctx context.Context, h *task.Handle, req SearchRequest) error {
	cfg := s.Config()
	applyFilterDefaults(&req.Filters, cfg.LinkedIn.Filters)
	if req.Limit <= 0 {
		req.Limit = cfg.Scraper.SearchLimit
	}

	h.SetProgress(5, "starting browser")
	var jobs []jobstore.Posting
	var fetcher *scraper.DescriptionFetcher
	sequential := false

	session, err := scraper.NewSession(ctx, cfg.Scraper, s.log)
	if err != nil {
		// No browser around: guest search still works, descriptions just
		// lose their rendered-DOM fallback.
		h.Log("browser unavailable, falling back to guest search: " + err.Error())
		pub := scraper.NewPublicScraper(s.log)
		h.SetProgress(20, "searching (guest mode)")
		jobs, err = pub.Search(ctx, req.Query, req.Location, req.Filters, req.Limit)
		if err != nil {
			return fmt.Errorf("guest search: %w", err)
		}
		fetcher = scraper.NewDescriptionFetcher(nil, cfg.Scraper.DescriptionWorkers, s.log)
	} else {
		defer session.Close()
		li := scraper.NewLinkedInScraper(session, s.log)

		if cfg.LinkedIn.Email != "" && cfg.LinkedIn.Password != "" {
			h.SetProgress(10, "logging in")
			ok, err := li.Login(ctx, cfg.LinkedIn.Email, cfg.LinkedIn.Password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if !ok {
				h.Log("login needs manual verification, continuing unauthenticated")
			}
		}

		h.SetProgress(25, "searching")
		jobs, err = li.Search(ctx, req.Query, req.Location, req.Filters, req.Limit, cfg.Scraper.MaxPages, cfg.Scraper.FastMode)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		fetcher = scraper.NewDescriptionFetcher(session, cfg.Scraper.DescriptionWorkers, s.log)
		// Normal mode fetches one posting at a time through the browser;
		// fast mode trades the pacing for the parallel HTTP pool.
		sequential = !cfg.Scraper.FastMode
	}

	h.Log(fmt.Sprintf("found %d jobs", len(jobs)))
	h.SetProgress(60, "fetching descriptions")
	if sequential {
		jobs = fetcher.FetchAllSequential(ctx, jobs, cfg.Scraper.MinDelayMs, cfg.Scraper.MaxDelayMs)
	} else {
		jobs = fetcher.FetchAll(ctx, jobs)
	}

	h.SetProgress(90, "saving")
	saved := 0
	for i := range jobs {
		if err := s.Jobs.Save(&jobs[i]); err != nil {
			h.Log("save failed for " + jobs[i].ID + ": " + err.Error())
			continue
		}
		saved++
	}
	h.Log(fmt.Sprintf("saved %d jobs", saved))
	return nil
}

func applyFilterDefaults(f *scraper.Filters, def config.FiltersConfig) {
	if len(f.ExperienceLevels) == 0 {
		f.ExperienceLevels = def.ExperienceLevels
	}
	if len(f.JobTypes) == 0 {
		f.JobTypes = def.JobTypes
	}
	if f.Workplace == "" {
		f.Workplace = def.Workplace
	}
	if f.DatePosted == "" {
		f.DatePosted = def.DatePosted
	}
}

// StartGenerate claims the task slot and personalizes one stored job in the
// background.
func (s *Service) StartGenerate(jobID string) (task.Snapshot, error) {
	prof, err := s.Profile()
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("load profile: %w", err)
	}
	if issues := prof.Validate(); len(issues) > 0 {
		return task.Snapshot{}, fmt.Errorf("profile has %d validation issues, fix it first", len(issues))
	}
	job, err := s.Jobs.Get(jobID)
	if err != nil {
		return task.Snapshot{}, err
	}

	h, err := s.Tasks.Start("generate")
	if err != nil {
		return task.Snapshot{}, err
	}
	go func() {
		h.Finish(s.runGenerate(context.Background(), h, prof, job))
	}()
	return s.Tasks.Status(), nil
}

func (s *Service) runGenerate(ctx context.Context, h *task.Handle, prof *profile.Profile, job *jobstore.Posting) error {
	h.SetProgress(5, "personalizing for "+job.Company)

	_, pers := s.clients()
	res, err := pers.Personalize(ctx, prof, job)
	if err != nil {
		return err
	}
	h.Log(fmt.Sprintf("match score %d%%", res.MatchScore))
	for _, d := range res.Degraded {
		h.Log("degraded step: " + d)
	}

	h.SetProgress(75, "rendering documents")
	out, err := s.Artifacts.Write(ctx, prof, job, res)
	if err != nil {
		return err
	}
	h.Log("cv: " + out.CVPath)
	h.Log("carta: " + out.LetterPath)
	if out.Format != s.Config().Render.Format {
		h.Log("output downgraded to " + out.Format)
	}
	return nil
}

// Generate runs the personalization synchronously, for the CLI. It still
// respects the single-task slot.
func (s *Service) Generate(ctx context.Context, jobID string) (*render.Output, *personalize.Result, error) {
	prof, err := s.Profile()
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	if issues := prof.Validate(); len(issues) > 0 {
		return nil, nil, fmt.Errorf("profile has %d validation issues, fix it first", len(issues))
	}
	job, err := s.Jobs.Get(jobID)
	if err != nil {
		return nil, nil, err
	}

	h, err := s.Tasks.Start("generate")
	if err != nil {
		return nil, nil, err
	}
	defer func() { h.Finish(err) }()

	_, pers := s.clients()
	res, err := pers.Personalize(ctx, prof, job)
	if err != nil {
		return nil, nil, err
	}
	out, err := s.Artifacts.Write(ctx, prof, job, res)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}

// Preview personalizes one stored job without rendering anything, for the
// CLI's dry look at the result.
func (s *Service) Preview(ctx context.Context, jobID string) (*personalize.Result, *jobstore.Posting, error) {
	prof, err := s.Profile()
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	job, err := s.Jobs.Get(jobID)
	if err != nil {
		return nil, nil, err
	}

	h, err := s.Tasks.Start("generate")
	if err != nil {
		return nil, nil, err
	}
	defer func() { h.Finish(err) }()

	_, pers := s.clients()
	res, err := pers.Personalize(ctx, prof, job)
	if err != nil {
		return nil, nil, err
	}
	return res, job, nil
}

// BatchItem is one job's outcome from GenerateAll.
type BatchItem struct {
	JobID      string `json:"job_id"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	MatchScore int    `json:"match_score"`
	Rendered   bool   `json:"rendered"`
	Err        string `json:"error,omitempty"`
}

// GenerateAll personalizes every stored job and renders documents for the
// ones scoring at or above minScore. One task slot covers the whole run.
func (s *Service) GenerateAll(ctx context.Context, minScore int) ([]BatchItem, error) {
	prof, err := s.Profile()
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if issues := prof.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("profile has %d validation issues, fix it first", len(issues))
	}
	jobs, err := s.Jobs.List()
	if err != nil {
		return nil, err
	}

	h, err := s.Tasks.Start("generate")
	if err != nil {
		return nil, err
	}
	defer func() { h.Finish(err) }()

	_, pers := s.clients()
	items := make([]BatchItem, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		item := BatchItem{JobID: job.ID, Title: job.Title, Company: job.Company}

		res, perr := pers.Personalize(ctx, prof, job)
		if perr != nil {
			item.Err = perr.Error()
			items = append(items, item)
			continue
		}
		item.MatchScore = res.MatchScore

		if res.MatchScore >= minScore {
			if _, werr := s.Artifacts.Write(ctx, prof, job, res); werr != nil {
				item.Err = werr.Error()
			} else {
				item.Rendered = true
			}
		}
		items = append(items, item)
		h.SetProgress((i+1)*100/len(jobs), fmt.Sprintf("%d/%d", i+1, len(jobs)))
	}
	return items, nil
}

// Search runs a search synchronously, for the CLI.
func (s *Service) Search(ctx context.Context, req SearchRequest) error {
	if req.Query == "" {
		return fmt.Errorf("query is required")
	}
	h, err := s.Tasks.Start("search")
	if err != nil {
		return err
	}
	err = s.runSearch(ctx, h, req)
	h.Finish(err)
	return err
}

// Settings is the mutable subset exposed on the dashboard.
type Settings struct {
	OllamaHost         string  `json:"ollama_host"`
	OllamaModel        string  `json:"ollama_model"`
	Temperature        float64 `json:"temperature"`
	SearchLimit        int     `json:"search_limit"`
	DescriptionWorkers int     `json:"description_workers"`
	FastMode           bool    `json:"fast_mode"`
	RenderFormat       string  `json:"render_format"`
}

func (s *Service) Settings() Settings {
	cfg := s.Config()
	return Settings{
		OllamaHost:         cfg.Ollama.Host,
		OllamaModel:        cfg.Ollama.Model,
		Temperature:        cfg.Ollama.Temperature,
		SearchLimit:        cfg.Scraper.SearchLimit,
		DescriptionWorkers: cfg.Scraper.DescriptionWorkers,
		FastMode:           cfg.Scraper.FastMode,
		RenderFormat:       cfg.Render.Format,
	}
}

// UpdateSettings applies the mutable settings for the rest of the process
// lifetime. Zero values leave the current setting untouched.
func (s *Service) UpdateSettings(in Settings) (Settings, error) {
	if in.RenderFormat != "" && in.RenderFormat != "pdf" && in.RenderFormat != "html" {
		return Settings{}, fmt.Errorf("render_format must be pdf or html")
	}

	s.mu.Lock()
	if in.OllamaHost != "" {
		s.cfg.Ollama.Host = in.OllamaHost
	}
	if in.OllamaModel != "" {
		s.cfg.Ollama.Model = in.OllamaModel
	}
	if in.Temperature > 0 {
		s.cfg.Ollama.Temperature = in.Temperature
	}
	if in.SearchLimit > 0 {
		s.cfg.Scraper.SearchLimit = in.SearchLimit
	}
	if in.DescriptionWorkers > 0 {
		s.cfg.Scraper.DescriptionWorkers = in.DescriptionWorkers
	}
	s.cfg.Scraper.FastMode = in.FastMode
	if in.RenderFormat != "" {
		s.cfg.Render.Format = in.RenderFormat
	}
	cfg := s.cfg

	// Host or model changes need a fresh client; the swap stays under mu
	// because running tasks read the pair through clients().
	client := ollama.NewClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Ollama.Timeout(),
		ollama.WithDefaults(cfg.Ollama.Temperature, cfg.Ollama.NumPredict))
	s.llm = client
	s.personalizer = personalize.NewPersonalizer(client, s.log)
	s.mu.Unlock()

	if in.RenderFormat != "" {
		s.Artifacts.SetFormat(in.RenderFormat)
	}

	s.statusMu.Lock()
	s.statusChecked = time.Time{}
	s.statusMu.Unlock()

	return s.Settings(), nil
}
