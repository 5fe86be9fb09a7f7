package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veridoc-io/reportlint/internal/docx"
	"github.com/veridoc-io/reportlint/internal/highlight"
	"github.com/veridoc-io/reportlint/internal/llm"
	"github.com/veridoc-io/reportlint/internal/render"
	"github.com/veridoc-io/reportlint/internal/review"
	"github.com/veridoc-io/reportlint/internal/store"
)

// Upload accepts a multipart .docx upload and registers it.
func (s *Server) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".docx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .docx files are supported"})
		return
	}

	if err := os.MkdirAll(s.cfg.Server.UploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stored := uuid.NewString() + ".docx"
	path := filepath.Join(s.cfg.Server.UploadDir, stored)
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	format, err := docx.DetectFormat(path)
	if err != nil || format != docx.FormatDOCX {
		os.Remove(path)
		msg := "file is not a valid .docx package"
		if format == docx.FormatLegacyDoc {
			msg = "legacy .doc format is not supported; convert to .docx first"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	doc, err := s.store.Create(file.Filename, stored, path)
	if err != nil {
		os.Remove(path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.WithField("document", doc.ID).Info("document uploaded")
	c.JSON(http.StatusCreated, doc)
}

// List returns all registered documents, newest first.
func (s *Server) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"documents": s.store.List()})
}

// Detail returns one document with its highlighted preview HTML. The
// optional "active" query parameter emphasizes one issue by index.
func (s *Server) Detail(c *gin.Context) {
	doc, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	active := highlight.NoActive
	if raw := c.Query("active"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			active = n
		}
	}

	preview, err := s.preview(doc, active)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document": doc,
		"preview":  preview,
		"summary":  review.Summarize(doc.Issues),
	})
}

// preview renders the anchored, highlighted HTML for a document.
func (s *Server) preview(doc *store.Document, active int) (string, error) {
	pkg, err := docx.Open(doc.FilePath)
	if err != nil {
		return "", err
	}
	marked, err := docx.InjectMarkers(pkg)
	if err != nil {
		return "", err
	}
	fragment, err := render.Fragment(marked)
	if err != nil {
		return "", err
	}
	walker, err := docx.NewWalker(pkg, docx.WalkOptions{})
	if err != nil {
		return "", err
	}
	anchored, err := render.ResolveAnchors(fragment, walker.ImageUnitIDs())
	if err != nil {
		return "", err
	}
	return highlight.Apply(anchored, doc.Issues, active)
}

type analyzeRequest struct {
	Provider string `json:"provider"`
	Language string `json:"language"`
	UseCache bool   `json:"use_cache"`
}

// Analyze runs the review pipeline on a document and stores the result.
// With use_cache, an already analyzed document returns its stored issues
// without calling the model again.
func (s *Server) Analyze(c *gin.Context) {
	doc, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.UseCache && doc.Status == store.StatusAnalyzed {
		c.JSON(http.StatusOK, gin.H{
			"document": doc,
			"summary":  review.Summarize(doc.Issues),
			"cached":   true,
		})
		return
	}

	name := req.Provider
	if name == "" {
		name = s.cfg.DefaultProvider
	}
	provider, err := s.registry.Get(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pkg, err := docx.Open(doc.FilePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	walker, err := docx.NewWalker(pkg, docx.WalkOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	units, err := walker.Units()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.SetStatus(doc.ID, store.StatusAnalyzing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	opts := llm.DefaultReviewOptions()
	opts.Language = s.cfg.Review.Language
	if req.Language != "" {
		opts.Language = req.Language
	}
	if s.cfg.Review.Temperature > 0 {
		opts.Temperature = s.cfg.Review.Temperature
	}

	analyzer := llm.NewAnalyzer(provider, s.cfg.Review.BatchSize, s.cfg.Review.Concurrency)
	issues := analyzer.Analyze(c.Request.Context(), units, opts)

	if err := s.store.SetAnalysis(doc.ID, issues); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	updated, err := s.store.Get(doc.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.WithField("document", doc.ID).WithField("issues", len(issues)).Info("analysis complete")
	c.JSON(http.StatusOK, gin.H{
		"document": updated,
		"summary":  review.Summarize(issues),
		"cached":   false,
	})
}

// Download streams the document with review comments inserted. The
// optional "issues" query parameter selects a comma-separated subset of
// issue indexes; all stored issues are written by default.
func (s *Server) Download(c *gin.Context) {
	doc, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	issues := doc.Issues
	if raw := c.Query("issues"); raw != "" {
		issues, err = selectIssues(doc.Issues, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	pkg, err := docx.Open(doc.FilePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	annotated, err := docx.WriteComments(pkg, issues, docx.CommentOptions{
		Author:   s.cfg.Review.Author,
		Initials: s.cfg.Review.Initials,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	data, err := annotated.Bytes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSuffix(doc.OriginalFilename, filepath.Ext(doc.OriginalFilename)) + "_reviewed.docx"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
}

// Delete removes a document and its uploaded file.
func (s *Server) Delete(c *gin.Context) {
	doc, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.Delete(doc.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		s.log.WithError(err).WithField("document", doc.ID).Warn("failed to remove uploaded file")
	}
	c.JSON(http.StatusOK, gin.H{"deleted": doc.ID})
}

func selectIssues(issues []review.Issue, raw string) ([]review.Issue, error) {
	var selected []review.Issue
	for _, part := range strings.Split(raw, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || idx < 0 || idx >= len(issues) {
			return nil, fmt.Errorf("invalid issue index: %s", part)
		}
		selected = append(selected, issues[idx])
	}
	return selected, nil
}
