package jobstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestStableID(t *testing.T) {
	a := StableID("Go Developer", "Acme", "https://example.com/jobs/1")
	b := StableID("Go Developer", "Acme", "https://example.com/jobs/1")
	c := StableID("Go Developer", "Acme", "https://example.com/jobs/2")

	require.Len(t, a, 12)
	require.Equal(t, a, b, "same content must hash to the same id")
	require.NotEqual(t, a, c, "different url must change the id")
}

func TestSaveAssignsIDAndOverwrites(t *testing.T) {
	s := newTestStore(t)

	p := &Posting{Title: "Go Developer", Company: "Acme", URL: "https://x/1", Description: "v1"}
	require.NoError(t, s.Save(p))
	require.Len(t, p.ID, 12)
	require.False(t, p.ScrapedAt.IsZero())

	p2 := &Posting{Title: "Go Developer", Company: "Acme", URL: "https://x/1", Description: "v2"}
	require.NoError(t, s.Save(p2))
	require.Equal(t, p.ID, p2.ID)

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "v2", all[0].Description)
}

func TestListNewestFirstAndSkipsCorrupt(t *testing.T) {
	s := newTestStore(t)

	old := &Posting{Title: "Old", Company: "A", URL: "u1", ScrapedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	recent := &Posting{Title: "New", Company: "B", URL: "u2", ScrapedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.Save(old))
	require.NoError(t, s.Save(recent))

	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "broken.json"), []byte("{not json"), 0o644))

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 2, "corrupt file must be skipped, not fatal")
	require.Equal(t, "New", all[0].Title)
	require.Equal(t, "Old", all[1].Title)
}

func TestGetByPrefix(t *testing.T) {
	s := newTestStore(t)
	p := &Posting{Title: "Go Developer", Company: "Acme", URL: "https://x/1"}
	require.NoError(t, s.Save(p))

	got, err := s.Get(p.ID[:6])
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)

	_, err = s.Get("ffffff")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetAmbiguousPrefix(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(&Posting{ID: "aaaa11112222", Title: "One", URL: "u1"}))
	require.NoError(t, s.Save(&Posting{ID: "aaaa33334444", Title: "Two", URL: "u2"}))

	_, err := s.Get("aaaa")
	require.ErrorIs(t, err, ErrAmbiguousPrefix)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	p := &Posting{Title: "Go Developer", Company: "Acme", URL: "https://x/1"}
	require.NoError(t, s.Save(p))

	require.NoError(t, s.Delete(p.ID))
	require.Equal(t, 0, s.Count())
	require.True(t, errors.Is(s.Delete(p.ID), ErrNotFound))
}
