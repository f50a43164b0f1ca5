// Package memory provides an in-memory paper store for development and
// testing. It mirrors the Postgres store's contract, including duplicate
// detection and stemmed free-text search.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wgilpin/paperstore/internal/paper"
)

// Store implements paper.Store with mutex-guarded maps.
type Store struct {
	mu     sync.RWMutex
	papers map[string]paper.Paper
	notes  map[string]paper.Note
	tags   map[string]map[string]bool
	order  []string
}

// NewStore constructs a Store.
func NewStore() *Store {
	return &Store{
		papers: make(map[string]paper.Paper),
		notes:  make(map[string]paper.Note),
		tags:   make(map[string]map[string]bool),
	}
}

// CreatePaper writes the paper and its empty note atomically.
func (s *Store) CreatePaper(_ context.Context, p paper.Paper) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.papers {
		if existing.SubmissionURL == p.SubmissionURL {
			return paper.ErrDuplicate
		}
		if p.ArxivID != "" && existing.ArxivID == p.ArxivID {
			return paper.ErrDuplicate
		}
	}

	s.papers[p.ID] = clonePaper(p)
	s.notes[p.ID] = paper.Note{PaperID: p.ID, Content: "", UpdatedAt: p.AddedAt}
	s.order = append(s.order, p.ID)
	return nil
}

// FindByArxivID returns the paper with the given arXiv id.
func (s *Store) FindByArxivID(_ context.Context, arxivID string) (paper.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if arxivID == "" {
		return paper.Paper{}, paper.ErrNotFound
	}
	for _, p := range s.papers {
		if p.ArxivID == arxivID {
			return clonePaper(p), nil
		}
	}
	return paper.Paper{}, paper.ErrNotFound
}

// FindBySubmissionURL returns the paper submitted from the exact URL.
func (s *Store) FindBySubmissionURL(_ context.Context, url string) (paper.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.papers {
		if p.SubmissionURL == url {
			return clonePaper(p), nil
		}
	}
	return paper.Paper{}, paper.ErrNotFound
}

// GetPaper returns a paper and its note by id.
func (s *Store) GetPaper(_ context.Context, id string) (paper.Paper, paper.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.papers[id]
	if !ok {
		return paper.Paper{}, paper.Note{}, paper.ErrNotFound
	}
	return clonePaper(p), s.notes[id], nil
}

// Search returns one page of papers plus the total match count.
func (s *Store) Search(_ context.Context, params paper.SearchParams) ([]paper.Paper, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]paper.Paper, 0, len(s.order))
	for _, id := range s.order {
		p := s.papers[id]
		if params.Tag != "" && !s.tags[id][params.Tag] {
			continue
		}
		candidates = append(candidates, p)
	}

	query := strings.TrimSpace(params.Query)
	if query == "" {
		sortPapers(candidates, params.Sort)
		return pageOf(candidates, params.Page)
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		return []paper.Paper{}, 0, nil
	}

	type scored struct {
		p     paper.Paper
		score int
	}
	matches := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		doc := Tokenize(paper.SearchText(p.Title, p.Authors, p.Abstract))
		counts := make(map[string]int, len(doc))
		for _, tok := range doc {
			counts[tok]++
		}
		score := 0
		matchedAll := true
		for _, term := range terms {
			n := counts[term]
			if n == 0 {
				matchedAll = false
				break
			}
			score += n
		}
		if matchedAll {
			matches = append(matches, scored{p: p, score: score})
		}
	}

	// Rank by relevance, ties broken by creation time descending.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].p.AddedAt.After(matches[j].p.AddedAt)
	})

	ranked := make([]paper.Paper, len(matches))
	for i, m := range matches {
		ranked[i] = m.p
	}
	return pageOf(ranked, params.Page)
}

// ListIncomplete returns papers missing a metadata field, in creation
// order.
func (s *Store) ListIncomplete(_ context.Context) ([]paper.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]paper.Paper, 0)
	for _, id := range s.order {
		p := s.papers[id]
		if !paper.MetadataOf(p).Complete() {
			out = append(out, clonePaper(p))
		}
	}
	return out, nil
}

// UpdateMetadata rewrites the paper's metadata fields.
func (s *Store) UpdateMetadata(_ context.Context, id string, m paper.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[id]
	if !ok {
		return paper.ErrNotFound
	}
	p.Title = m.Title
	p.Authors = append([]string(nil), m.Authors...)
	p.PublishedDate = m.PublishedDate
	p.Abstract = m.Abstract
	s.papers[id] = p
	return nil
}

// UpdateNote replaces the note content for a paper.
func (s *Store) UpdateNote(_ context.Context, paperID string, content string) (paper.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.papers[paperID]; !ok {
		return paper.Note{}, paper.ErrNotFound
	}
	note := s.notes[paperID]
	note.Content = content
	note.UpdatedAt = time.Now().UTC()
	s.notes[paperID] = note
	return note, nil
}

// DeletePaper removes the paper, its note and its tag links.
func (s *Store) DeletePaper(_ context.Context, id string) (paper.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[id]
	if !ok {
		return paper.Paper{}, paper.ErrNotFound
	}
	delete(s.papers, id)
	delete(s.notes, id)
	delete(s.tags, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return p, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

// TagPaper attaches a label to a paper. Label CRUD itself lives outside
// the core; this exists so tests and dev mode can exercise the search
// filter.
func (s *Store) TagPaper(id, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tags[id] == nil {
		s.tags[id] = make(map[string]bool)
	}
	s.tags[id][tag] = true
}

// Len reports the number of stored papers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.papers)
}

func clonePaper(p paper.Paper) paper.Paper {
	cp := p
	cp.Authors = append([]string(nil), p.Authors...)
	if p.PublishedDate != nil {
		d := *p.PublishedDate
		cp.PublishedDate = &d
	}
	return cp
}

func sortPapers(papers []paper.Paper, key paper.SortKey) {
	switch key {
	case paper.SortTitle:
		sort.SliceStable(papers, func(i, j int) bool {
			return strings.ToLower(papers[i].Title) < strings.ToLower(papers[j].Title)
		})
	default:
		sort.SliceStable(papers, func(i, j int) bool {
			return papers[i].AddedAt.After(papers[j].AddedAt)
		})
	}
}

func pageOf(papers []paper.Paper, page int) ([]paper.Paper, int, error) {
	total := len(papers)
	if page < 1 {
		page = 1
	}
	start := (page - 1) * paper.PageSize
	if start >= total {
		return []paper.Paper{}, total, nil
	}
	end := start + paper.PageSize
	if end > total {
		end = total
	}
	out := make([]paper.Paper, end-start)
	for i, p := range papers[start:end] {
		out[i] = clonePaper(p)
	}
	return out, total, nil
}
