// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ppiankov/clearview/internal/extract/adapters"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/pipeline"
	"github.com/ppiankov/clearview/internal/render"
	"github.com/ppiankov/clearview/internal/store"
	"github.com/rs/zerolog/log"
)

// Server holds the HTTP handlers' collaborators
type Server struct {
	pipe    *pipeline.Pipeline
	docs    render.DocumentRenderer
	store   store.Store // nil disables persistence
	cfg     model.ServerConfig
	version string
}

// New creates a server. store may be nil.
func New(pipe *pipeline.Pipeline, docs render.DocumentRenderer, st store.Store, cfg model.ServerConfig, version string) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = adapters.DefaultMaxUploadBytes
	}
	return &Server{pipe: pipe, docs: docs, store: st, cfg: cfg, version: version}
}

// Router builds the gin engine with every route attached
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())
	corsCfg := cors.Config{
		AllowOrigins:  s.cfg.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Record-ID"},
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", s.health)
	r.GET("/extract", s.extract)
	r.POST("/extract", s.extract)
	r.POST("/analyze", s.analyze)
	r.POST("/analyze/upload", s.analyzeUpload)
	r.POST("/report", s.report)
	r.GET("/records", s.listRecords)
	r.GET("/records/:id", s.getRecord)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// analyzeRequest is the JSON body of /analyze and /report. Nil cutoffs use
// the configured defaults.
type analyzeRequest struct {
	URL                string   `json:"url" form:"url"`
	Text               string   `json:"text" form:"text"`
	SentenceCount      int      `json:"sentence_count" form:"sentence_count"`
	ScamCutoff         *float64 `json:"scam_cutoff" form:"scam_cutoff"`
	SubjectivityCutoff *float64 `json:"subjectivity_cutoff" form:"subjectivity_cutoff"`
	BiasCutoff         *float64 `json:"bias_cutoff" form:"bias_cutoff"`
	SkipAdvisory       bool     `json:"skip_advisory" form:"skip_advisory"`
}

func (s *Server) options(req analyzeRequest) pipeline.AnalyzeOptions {
	opts := s.pipe.DefaultAnalyzeOptions()
	if req.SentenceCount > 0 {
		opts.SentenceCount = req.SentenceCount
	}
	if req.ScamCutoff != nil {
		opts.ScamCutoff = *req.ScamCutoff
	}
	if req.SubjectivityCutoff != nil {
		opts.SubjectivityCutoff = *req.SubjectivityCutoff
	}
	if req.BiasCutoff != nil {
		opts.BiasCutoff = *req.BiasCutoff
	}
	opts.SkipAdvisory = req.SkipAdvisory
	return opts
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version, "persistence": s.store != nil})
}

func (s *Server) extract(c *gin.Context) {
	var req analyzeRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	ext, err := s.pipe.Extract(c.Request.Context(), pipeline.Input{URL: req.URL, Text: req.Text})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ext)
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	_, res, err := s.pipe.Run(c.Request.Context(), pipeline.Input{URL: req.URL, Text: req.Text}, s.options(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) analyzeUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes+1<<20)

	var req analyzeRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, model.NewInputError("file", "multipart field 'file' is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		writeError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	ext, err := adapters.FromUpload(fh.Filename, fh.Header.Get("Content-Type"), data, s.cfg.MaxUploadBytes)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := s.pipe.Analyze(c.Request.Context(), ext, s.options(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) report(c *gin.Context) {
	var req analyzeRequest
	if err := bind(c, &req); err != nil {
		writeError(c, err)
		return
	}
	_, res, err := s.pipe.Run(c.Request.Context(), pipeline.Input{URL: req.URL, Text: req.Text}, s.options(req))
	if err != nil {
		writeError(c, err)
		return
	}

	pdf, err := s.docs.Render(render.FromAnalysis(res))
	if err != nil {
		writeError(c, err)
		return
	}

	if id := s.save(c.Request.Context(), res, pdf); id != "" {
		c.Header("X-Record-ID", id)
	}
	c.Header("Content-Disposition", `attachment; filename="clearview_report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// save persists the report, logging and swallowing failures
func (s *Server) save(ctx context.Context, res *model.AnalysisResult, pdf []byte) string {
	if s.store == nil {
		return ""
	}
	rec, err := pipeline.NewRecord(res, pdf)
	if err == nil {
		err = s.store.Save(ctx, rec)
	}
	if err != nil {
		log.Warn().Err(err).Str("source", res.Extraction.Source).Msg("report not persisted")
		return ""
	}
	return rec.ID
}

func (s *Server) listRecords(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persistence is disabled"})
		return
	}
	recs, err := s.store.List(c.Request.Context(), 20)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) getRecord(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "persistence is disabled"})
		return
	}
	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("meta") != "" {
		c.JSON(http.StatusOK, rec)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="clearview_%s.pdf"`, rec.ID))
	c.Data(http.StatusOK, "application/pdf", rec.Blob)
}

// bind reads the request from JSON bodies or query/form values
func bind(c *gin.Context, req *analyzeRequest) error {
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(req)
	} else {
		err = c.ShouldBind(req)
	}
	if err != nil {
		return model.NewInputError("body", err.Error())
	}
	return nil
}

// writeError maps input and extraction faults to 422, everything else to 500
func writeError(c *gin.Context, err error) {
	var inputErr *model.InputError
	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": inputErr.Error()})
	case errors.Is(err, pipeline.ErrExtractionFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// requestLogger logs each request through zerolog
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
