package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"autocv/internal/app"
	"autocv/internal/config"
	"autocv/internal/pkg/logger"
	"autocv/internal/scraper"
	"autocv/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	configDir := "config"
	if v := os.Getenv("AUTOCV_CONFIG_DIR"); v != "" {
		configDir = v
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}
	zl := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zl.Sync()

	c, err := app.NewContainer(cfg, zl)
	if err != nil {
		fatalf("failed to start: %v", err)
	}
	defer c.Close()

	ctx := context.Background()

	switch cmd {
	case "status":
		runStatus(ctx, c.Service)
	case "search":
		runSearch(ctx, c.Service, args)
	case "generate":
		runGenerate(ctx, c.Service, args)
	case "profile":
		runProfile(c.Service, args)
	case "apply":
		fmt.Println("apply: not implemented yet")
	case "batch":
		fmt.Println("batch: not implemented yet")
	case "interactive":
		runInteractive(ctx, c.Service)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `autocv - personalized CV and cover letter generator

Usage:
  autocv status
  autocv search -query <text> [-location <text>] [-limit N] [filter flags]
  autocv generate <job-id> [-preview] [-format pdf|html]
  autocv generate -all [-min-score N]
  autocv profile [show|validate]
  autocv apply <job-id>        (not implemented yet)
  autocv batch                 (not implemented yet)
  autocv interactive

Filter flags for search:
  -experience  comma list: internship, entry, associate, mid-senior, director, executive
  -job-type    comma list: full-time, part-time, contract, temporary, volunteer, internship
  -workplace   onsite, remote or hybrid
  -date-posted day, week or month
`)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runStatus(ctx context.Context, svc *service.Service) {
	report := svc.Status(ctx)

	fmt.Printf("Ollama:    %s (%s)\n", boolWord(report.OllamaOK, "connected", "unreachable"), report.OllamaHost)
	fmt.Printf("Model:     %s\n", report.Model)
	if len(report.Models) > 0 {
		fmt.Printf("Available: %s\n", strings.Join(report.Models, ", "))
	}
	if report.ProfileOK {
		fmt.Println("Profile:   ok")
	} else {
		fmt.Printf("Profile:   %d issues (run: autocv profile validate)\n", report.ProfileIssues)
	}
	fmt.Printf("Jobs:      %d stored\n", report.JobCount)
	fmt.Printf("Generated: %d files\n", report.ArtifactCount)
	if report.Task.State != "idle" {
		fmt.Printf("Task:      %s %s (%d%%)\n", report.Task.Kind, report.Task.State, report.Task.Progress)
	}
}

func boolWord(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

func runSearch(ctx context.Context, svc *service.Service, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("query", "", "search keywords (required)")
	location := fs.String("location", "", "location")
	limit := fs.Int("limit", 0, "max results")
	experience := fs.String("experience", "", "comma-separated experience levels")
	jobType := fs.String("job-type", "", "comma-separated job types")
	workplace := fs.String("workplace", "", "onsite, remote or hybrid")
	datePosted := fs.String("date-posted", "", "day, week or month")
	fs.Parse(args)

	if *query == "" && fs.NArg() > 0 {
		*query = strings.Join(fs.Args(), " ")
	}
	if *query == "" {
		fatalf("search: -query is required")
	}

	req := service.SearchRequest{
		Query:    *query,
		Location: *location,
		Limit:    *limit,
		Filters: scraper.Filters{
			ExperienceLevels: splitList(*experience),
			JobTypes:         splitList(*jobType),
			Workplace:        *workplace,
			DatePosted:       *datePosted,
		},
	}

	if err := svc.Search(ctx, req); err != nil {
		fatalf("search failed: %v", err)
	}

	jobs, err := svc.Jobs.List()
	if err != nil {
		fatalf("list jobs: %v", err)
	}
	fmt.Printf("%d jobs stored:\n", len(jobs))
	for _, j := range jobs {
		fmt.Printf("  %s  %-40s %s\n", j.ID, truncate(j.Title, 40), j.Company)
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func runGenerate(ctx context.Context, svc *service.Service, args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	all := fs.Bool("all", false, "generate for every stored job above -min-score")
	minScore := fs.Int("min-score", 50, "minimum match score for -all")
	preview := fs.Bool("preview", false, "personalize only, write nothing")
	format := fs.String("format", "", "override output format: pdf or html")
	fs.Parse(args)

	if *format != "" {
		if _, err := svc.UpdateSettings(service.Settings{RenderFormat: *format}); err != nil {
			fatalf("generate: %v", err)
		}
	}

	if *all {
		items, err := svc.GenerateAll(ctx, *minScore)
		if err != nil {
			fatalf("generate failed: %v", err)
		}
		for _, it := range items {
			mark := " "
			if it.Rendered {
				mark = "*"
			}
			line := fmt.Sprintf("%s %s  %3d%%  %s - %s", mark, it.JobID, it.MatchScore, truncate(it.Title, 36), it.Company)
			if it.Err != "" {
				line += "  (" + it.Err + ")"
			}
			fmt.Println(line)
		}
		return
	}

	if fs.NArg() < 1 {
		fatalf("generate: job id is required")
	}
	jobID := fs.Arg(0)

	if *preview {
		res, job, err := svc.Preview(ctx, jobID)
		if err != nil {
			fatalf("generate failed: %v", err)
		}
		fmt.Printf("%s - %s\n", job.Title, job.Company)
		fmt.Printf("Match score: %d%%\n\n", res.MatchScore)
		fmt.Println("Summary:")
		fmt.Println("  " + res.Summary)
		if len(res.Skills) > 0 {
			fmt.Println("\nSkills: " + strings.Join(res.Skills, ", "))
		}
		if len(res.Degraded) > 0 {
			fmt.Println("\nDegraded steps: " + strings.Join(res.Degraded, ", "))
		}
		return
	}

	out, res, err := svc.Generate(ctx, jobID)
	if err != nil {
		fatalf("generate failed: %v", err)
	}
	fmt.Printf("Match score: %d%%\n", res.MatchScore)
	if len(res.Degraded) > 0 {
		fmt.Println("Degraded steps: " + strings.Join(res.Degraded, ", "))
	}
	fmt.Println("CV:     " + out.CVPath)
	fmt.Println("Letter: " + out.LetterPath)
}

func runProfile(svc *service.Service, args []string) {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	prof, err := svc.Profile()
	if err != nil {
		fatalf("load profile: %v", err)
	}

	switch sub {
	case "show":
		fmt.Print(prof.PlainText())
	case "validate":
		issues := prof.Validate()
		if len(issues) == 0 {
			fmt.Println("profile ok")
			return
		}
		fmt.Printf("%d issues:\n", len(issues))
		for _, is := range issues {
			fmt.Printf("  %s: %s\n", is.Field, is.Message)
		}
		os.Exit(1)
	default:
		fatalf("profile: unknown subcommand %q (use show or validate)", sub)
	}
}

func runInteractive(ctx context.Context, svc *service.Service) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(`
1. Status
2. Search jobs
3. List stored jobs
4. Generate documents
5. Show profile
0. Exit
> `)
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		switch strings.TrimSpace(line) {
		case "1":
			runStatus(ctx, svc)
		case "2":
			query := promptLine(reader, "Keywords: ")
			if query == "" {
				continue
			}
			location := promptLine(reader, "Location (blank for any): ")
			if err := svc.Search(ctx, service.SearchRequest{Query: query, Location: location}); err != nil {
				fmt.Println("search failed:", err)
			}
		case "3":
			listJobs(svc)
		case "4":
			listJobs(svc)
			id := promptLine(reader, "Job id: ")
			if id == "" {
				continue
			}
			out, res, err := svc.Generate(ctx, id)
			if err != nil {
				fmt.Println("generate failed:", err)
				continue
			}
			fmt.Printf("match score %d%%\n", res.MatchScore)
			fmt.Println("cv:", out.CVPath)
			fmt.Println("letter:", out.LetterPath)
		case "5":
			if prof, err := svc.Profile(); err != nil {
				fmt.Println("load profile:", err)
			} else {
				fmt.Print(prof.PlainText())
			}
		case "0", "q", "exit":
			return
		default:
			fmt.Println("pick a number from the menu")
		}
	}
}

func promptLine(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func listJobs(svc *service.Service) {
	jobs, err := svc.Jobs.List()
	if err != nil {
		fmt.Println("list jobs:", err)
		return
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs stored, run a search first")
		return
	}
	for i, j := range jobs {
		fmt.Printf("%2s. %s  %-40s %s\n", strconv.Itoa(i+1), j.ID, truncate(j.Title, 40), j.Company)
	}
}
