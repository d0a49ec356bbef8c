package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validProfile() *Profile {
	return &Profile{
		Personal: Personal{
			Nombre:    "Ana",
			Apellidos: "García",
			Email:     "ana@example.com",
			Telefono:  "+34 600 000 000",
		},
		Education: []Education{
			{Titulo: "Grado en Informática", Institucion: "UCM"},
		},
		Experience: []Experience{
			{
				Puesto:            "Backend Engineer",
				Empresa:           "Acme",
				Inicio:            "2021-03",
				Fin:               "presente",
				Responsabilidades: []string{"API development"},
			},
		},
		Languages: []Language{{Idioma: "Inglés", Nivel: "C1"}},
		Skills:    Skills{Tecnicas: []string{"Go", "PostgreSQL"}, Blandas: []string{"Mentoring"}},
	}
}

func TestValidateOK(t *testing.T) {
	if issues := validProfile().Validate(); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestValidateReportsMissingFields(t *testing.T) {
	p := validProfile()
	p.Personal.Email = ""
	p.Experience[0].Puesto = ""
	p.Experience[0].Responsabilidades = nil

	issues := p.Validate()
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %v", len(issues), issues)
	}

	fields := map[string]bool{}
	for _, is := range issues {
		fields[is.Field] = true
	}
	for _, want := range []string{"personal.email", "experiencia[0].puesto", "experiencia[0].responsabilidades"} {
		if !fields[want] {
			t.Fatalf("missing issue for %s in %v", want, issues)
		}
	}
}

func TestValidateReportsEmptySections(t *testing.T) {
	p := validProfile()
	p.Experience = nil
	p.Skills = Skills{}

	issues := p.Validate()
	fields := map[string]bool{}
	for _, is := range issues {
		fields[is.Field] = true
	}
	if !fields["experiencia"] {
		t.Fatalf("empty experience list not reported: %v", issues)
	}
	if !fields["habilidades"] {
		t.Fatalf("empty skill inventory not reported: %v", issues)
	}
}

func TestValidateBadEmail(t *testing.T) {
	p := validProfile()
	p.Personal.Email = "not-an-email"
	issues := p.Validate()
	if len(issues) != 1 || issues[0].Field != "personal.email" {
		t.Fatalf("expected single email issue, got %v", issues)
	}
}

func TestDurationMonths(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	if got := DurationMonths("2021-03", "2023-09", now); got != 30 {
		t.Fatalf("closed range: got %d, want 30", got)
	}
	if got := DurationMonths("2026-02", "presente", now); got != 6 {
		t.Fatalf("open range: got %d, want 6", got)
	}
	if got := DurationMonths("2026-02", "", now); got != 6 {
		t.Fatalf("blank end: got %d, want 6", got)
	}
	if got := DurationMonths("2024-05", "2024-05", now); got != 0 {
		t.Fatalf("same month: got %d, want 0", got)
	}
	if got := DurationMonths("2025-01", "2024-01", now); got != 0 {
		t.Fatalf("inverted range must clamp to 0, got %d", got)
	}
	if got := DurationMonths("garbage", "2024-01", now); got != 0 {
		t.Fatalf("unparseable start must be 0, got %d", got)
	}
}

func TestTotalExperienceAndCurrentRole(t *testing.T) {
	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	p := validProfile()
	p.Experience = append(p.Experience, Experience{
		Puesto: "Intern", Empresa: "Beta", Inicio: "2020-01", Fin: "2020-07",
		Responsabilidades: []string{"Support"},
	})

	if got := p.TotalExperienceMonths(now); got != 65+6 {
		t.Fatalf("total months: got %d, want %d", got, 65+6)
	}
	cur := p.CurrentRole()
	if cur == nil || cur.Empresa != "Acme" {
		t.Fatalf("current role: got %+v", cur)
	}
}

func TestPlainTextIsDeterministicAndFactual(t *testing.T) {
	p := validProfile()
	a, b := p.PlainText(), p.PlainText()
	if a != b {
		t.Fatal("PlainText must be deterministic")
	}
	for _, want := range []string{"Ana García", "Backend Engineer", "Acme", "Inglés (C1)", "Go, PostgreSQL, Mentoring"} {
		if !strings.Contains(a, want) {
			t.Fatalf("PlainText missing %q:\n%s", want, a)
		}
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.yaml")
	p := validProfile()

	if err := Save(path, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Personal.Nombre != "Ana" || len(got.Experience) != 1 || got.Experience[0].Fin != "presente" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("personal: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
