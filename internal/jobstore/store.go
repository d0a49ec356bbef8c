package jobstore

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Posting is one scraped job, stored as a single JSON document on disk.
type Posting struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

var (
	ErrNotFound        = fmt.Errorf("job not found")
	ErrAmbiguousPrefix = fmt.Errorf("job id prefix matches more than one job")
)

// StableID derives the job's identity from its content so re-scraping the
// same posting overwrites rather than duplicates.
func StableID(title, company, url string) string {
	h := md5.Sum([]byte(title + "|" + company + "|" + url))
	return hex.EncodeToString(h[:])[:12]
}

// Store keeps one <id>.json file per posting under dir.
type Store struct {
	dir string
	log *zap.Logger
}

func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Save writes the posting, assigning the content ID when unset. Saving the
// same posting twice overwrites in place.
func (s *Store) Save(p *Posting) error {
	if p == nil {
		return fmt.Errorf("nil posting")
	}
	if p.ID == "" {
		p.ID = StableID(p.Title, p.Company, p.URL)
	}
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = time.Now().UTC()
	}

	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", p.ID, err)
	}
	tmp := s.path(p.ID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write job %s: %w", p.ID, err)
	}
	return os.Rename(tmp, s.path(p.ID))
}

// List returns every readable posting, newest scrape first. Corrupt files
// are logged and skipped.
func (s *Store) List() ([]Posting, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read jobs dir: %w", err)
	}

	out := make([]Posting, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable job file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		var p Posting
		if err := json.Unmarshal(b, &p); err != nil {
			s.log.Warn("skipping corrupt job file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScrapedAt.Equal(out[j].ScrapedAt) {
			return out[i].ScrapedAt.After(out[j].ScrapedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get resolves an exact ID or a unique ID prefix.
func (s *Store) Get(idOrPrefix string) (*Posting, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, ErrNotFound
	}

	if b, err := os.ReadFile(s.path(idOrPrefix)); err == nil {
		var p Posting
		if err := json.Unmarshal(b, &p); err != nil {
			return nil, fmt.Errorf("corrupt job file %s: %w", idOrPrefix, err)
		}
		return &p, nil
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var match *Posting
	for i := range all {
		if strings.HasPrefix(all[i].ID, idOrPrefix) {
			if match != nil {
				return nil, ErrAmbiguousPrefix
			}
			match = &all[i]
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}
	return match, nil
}

// Delete removes a posting by exact ID.
func (s *Store) Delete(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Count returns the number of stored postings.
func (s *Store) Count() int {
	all, err := s.List()
	if err != nil {
		return 0
	}
	return len(all)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".json")
}
