package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the profile document at path.
func Load(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}

// Save writes the profile back as YAML, creating parent dirs as needed.
func Save(path string, p *Profile) error {
	if p == nil {
		return fmt.Errorf("nil profile")
	}
	b, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// Validate reports everything wrong with the document. An empty slice means
// the profile is usable.
func (p *Profile) Validate() []Issue {
	var issues []Issue
	add := func(field, msg string) {
		issues = append(issues, Issue{Field: field, Message: msg})
	}

	if strings.TrimSpace(p.Personal.Nombre) == "" {
		add("personal.nombre", "required")
	}
	if strings.TrimSpace(p.Personal.Apellidos) == "" {
		add("personal.apellidos", "required")
	}
	if strings.TrimSpace(p.Personal.Email) == "" {
		add("personal.email", "required")
	} else if !strings.Contains(p.Personal.Email, "@") {
		add("personal.email", "not a valid email address")
	}
	if strings.TrimSpace(p.Personal.Telefono) == "" {
		add("personal.telefono", "required")
	}

	if len(p.Education) == 0 {
		add("educacion", "at least one entry required")
	}
	for i, e := range p.Education {
		if strings.TrimSpace(e.Titulo) == "" {
			add(fmt.Sprintf("educacion[%d].titulo", i), "required")
		}
		if strings.TrimSpace(e.Institucion) == "" {
			add(fmt.Sprintf("educacion[%d].institucion", i), "required")
		}
	}

	if len(p.Experience) == 0 {
		add("experiencia", "at least one entry required")
	}
	for i, e := range p.Experience {
		if strings.TrimSpace(e.Puesto) == "" {
			add(fmt.Sprintf("experiencia[%d].puesto", i), "required")
		}
		if strings.TrimSpace(e.Empresa) == "" {
			add(fmt.Sprintf("experiencia[%d].empresa", i), "required")
		}
		if len(e.Responsabilidades) == 0 {
			add(fmt.Sprintf("experiencia[%d].responsabilidades", i), "at least one entry required")
		}
	}

	for i, l := range p.Languages {
		if strings.TrimSpace(l.Idioma) == "" {
			add(fmt.Sprintf("idiomas[%d].idioma", i), "required")
		}
		if strings.TrimSpace(l.Nivel) == "" {
			add(fmt.Sprintf("idiomas[%d].nivel", i), "required")
		}
	}

	if len(p.AllSkills()) == 0 {
		add("habilidades", "at least one skill required")
	}

	return issues
}

// DurationMonths counts whole months between two "2006-01" (or "2006-01-02")
// dates. An empty or "presente"/"actual" end means the range is still open
// and runs to now. Unparseable or inverted ranges count as zero.
func DurationMonths(from, to string, now time.Time) int {
	start, ok := parseFlexibleDate(from)
	if !ok {
		return 0
	}
	end := now
	if !isOpenEnded(to) {
		e, ok := parseFlexibleDate(to)
		if !ok {
			return 0
		}
		end = e
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if months < 0 {
		return 0
	}
	return months
}

func isOpenEnded(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "presente", "actual", "actualidad", "present", "current", "now":
		return true
	}
	return false
}

func parseFlexibleDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01", "01/2006", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TotalExperienceMonths sums whole months across every experience entry.
func (p *Profile) TotalExperienceMonths(now time.Time) int {
	total := 0
	for _, e := range p.Experience {
		total += DurationMonths(e.Inicio, e.Fin, now)
	}
	return total
}

// CurrentRole returns the first open-ended experience entry, or nil.
func (p *Profile) CurrentRole() *Experience {
	for i := range p.Experience {
		if isOpenEnded(p.Experience[i].Fin) {
			return &p.Experience[i]
		}
	}
	return nil
}

// AllSkills flattens technical and soft skills, preserving order.
func (p *Profile) AllSkills() []string {
	out := make([]string, 0, len(p.Skills.Tecnicas)+len(p.Skills.Blandas))
	out = append(out, p.Skills.Tecnicas...)
	out = append(out, p.Skills.Blandas...)
	return out
}

// PlainText flattens the profile into the deterministic block the prompt
// builder embeds. Only facts present in the document appear here.
func (p *Profile) PlainText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Name: %s %s\n", p.Personal.Nombre, p.Personal.Apellidos)
	fmt.Fprintf(&b, "Email: %s\n", p.Personal.Email)
	fmt.Fprintf(&b, "Phone: %s\n", p.Personal.Telefono)
	if p.Personal.Ciudad != "" {
		fmt.Fprintf(&b, "Location: %s\n", p.Personal.Ciudad)
	}
	if p.Personal.Resumen != "" {
		fmt.Fprintf(&b, "Summary: %s\n", p.Personal.Resumen)
	}

	if len(p.Experience) > 0 {
		b.WriteString("\nExperience:\n")
		for i, e := range p.Experience {
			fin := e.Fin
			if isOpenEnded(fin) {
				fin = "present"
			}
			fmt.Fprintf(&b, "%d. %s at %s (%s - %s)\n", i+1, e.Puesto, e.Empresa, e.Inicio, fin)
			for _, r := range e.Responsabilidades {
				fmt.Fprintf(&b, "   - %s\n", r)
			}
			for _, l := range e.Logros {
				fmt.Fprintf(&b, "   * %s\n", l)
			}
		}
	}

	if len(p.Education) > 0 {
		b.WriteString("\nEducation:\n")
		for _, e := range p.Education {
			fmt.Fprintf(&b, "- %s, %s\n", e.Titulo, e.Institucion)
		}
	}

	if len(p.Languages) > 0 {
		b.WriteString("\nLanguages:\n")
		for _, l := range p.Languages {
			fmt.Fprintf(&b, "- %s (%s)\n", l.Idioma, l.Nivel)
		}
	}

	if skills := p.AllSkills(); len(skills) > 0 {
		fmt.Fprintf(&b, "\nSkills: %s\n", strings.Join(skills, ", "))
	}

	return b.String()
}
