// Package store keeps the server's document registry: one JSON file on
// disk holding upload metadata, analysis status and review results.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc-io/reportlint/internal/review"
)

// Document statuses.
const (
	StatusUploaded  = "uploaded"
	StatusAnalyzing = "analyzing"
	StatusAnalyzed  = "analyzed"
)

// Document is one uploaded report and its review state.
type Document struct {
	ID               string         `json:"id"`
	Filename         string         `json:"filename"`
	OriginalFilename string         `json:"original_filename"`
	FilePath         string         `json:"file_path"`
	Status           string         `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	QualityScore     int            `json:"quality_score"`
	Issues           []review.Issue `json:"issues,omitempty"`
	CriticalCount    int            `json:"critical_count"`
	MajorCount       int            `json:"major_count"`
	MinorCount       int            `json:"minor_count"`
}

// Store is a mutex-guarded document registry persisted to a single JSON
// file. Every mutation rewrites the file.
type Store struct {
	mu        sync.Mutex
	path      string
	documents map[string]*Document
	now       func() time.Time
}

// New opens (or creates) a store rooted at dataDir.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{
		path:      filepath.Join(dataDir, "documents.json"),
		documents: make(map[string]*Document),
		now:       time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read document registry: %w", err)
	}
	var docs []*Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse document registry: %w", err)
	}
	for _, doc := range docs {
		s.documents[doc.ID] = doc
	}
	return nil
}

// flush writes the registry; callers hold the lock.
func (s *Store) flush() error {
	docs := s.sorted()
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document registry: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write document registry: %w", err)
	}
	return nil
}

func (s *Store) sorted() []*Document {
	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs
}

// Create registers a freshly uploaded document and returns it.
func (s *Store) Create(originalFilename, storedFilename, filePath string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	doc := &Document{
		ID:               uuid.NewString(),
		Filename:         storedFilename,
		OriginalFilename: originalFilename,
		FilePath:         filePath,
		Status:           StatusUploaded,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.documents[doc.ID] = doc
	if err := s.flush(); err != nil {
		delete(s.documents, doc.ID)
		return nil, err
	}
	return doc.clone(), nil
}

// Get returns a document by id.
func (s *Store) Get(id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return doc.clone(), nil
}

// List returns all documents, newest first.
func (s *Store) List() []*Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.sorted()
	out := make([]*Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.clone()
	}
	return out
}

// SetStatus updates a document's status.
func (s *Store) SetStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	doc.Status = status
	doc.UpdatedAt = s.now().UTC()
	return s.flush()
}

// SetAnalysis stores a completed review on the document and marks it
// analyzed.
func (s *Store) SetAnalysis(id string, issues []review.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	summary := review.Summarize(issues)
	doc.Status = StatusAnalyzed
	doc.Issues = issues
	doc.QualityScore = summary.Score
	doc.CriticalCount = summary.Critical
	doc.MajorCount = summary.Major
	doc.MinorCount = summary.Minor
	doc.UpdatedAt = s.now().UTC()
	return s.flush()
}

// Delete removes a document from the registry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	delete(s.documents, id)
	if err := s.flush(); err != nil {
		s.documents[id] = doc
		return err
	}
	return nil
}

func (d *Document) clone() *Document {
	c := *d
	if d.Issues != nil {
		c.Issues = append([]review.Issue(nil), d.Issues...)
	}
	return &c
}
