package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"
	"strings"

	"deview/domain/results"
	"deview/internal"
	"deview/internal/metrics"
	"deview/internal/session"
	"deview/internal/volcano"
	"deview/ui/middleware"

	"github.com/gin-gonic/gin"
)

// Assets holds the page templates and stylesheet.
//
//go:embed templates/*.html static/css/*.css
var Assets embed.FS

// Options are the server settings taken from configuration.
type Options struct {
	MaxUploadBytes int64
	PipelineRoot   string
}

// Server represents the web server for the results explorer
type Server struct {
	router    *gin.Engine
	templates *template.Template
	assets    fs.FS
	sessions  *session.Manager
	service   *session.Service
	metrics   *metrics.Metrics
	opts      Options
	logger    *internal.Logger
}

// NewServer parses the templates in assets and registers every route.
func NewServer(assets fs.FS, sessions *session.Manager, service *session.Service, m *metrics.Metrics, opts Options) (*Server, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	if opts.PipelineRoot == "" {
		opts.PipelineRoot = "./rnaseq"
	}

	s := &Server{
		router:   gin.Default(),
		assets:   assets,
		sessions: sessions,
		service:  service,
		metrics:  m,
		opts:     opts,
		logger:   internal.DefaultLogger.With("UI"),
	}

	tmpl, err := template.New("").Funcs(funcMap()).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.templates = tmpl

	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router for an http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() error {
	s.router.Use(middleware.RequestMetrics(s.metrics))

	staticFS, err := fs.Sub(s.assets, "static")
	if err != nil {
		return fmt.Errorf("failed to open static assets: %w", err)
	}
	s.router.StaticFS("/static", http.FS(staticFS))
	return nil
}

func (s *Server) setupRoutes() {
	explorer := s.router.Group("/", middleware.EnsureSession(s.sessions))
	{
		explorer.GET("/", s.handleIndex)
		explorer.POST("/upload", s.handleUpload)
		explorer.POST("/state", s.handleState)
		explorer.POST("/reset", s.handleReset)
		explorer.POST("/uploads/:id/open", s.handleReopen)
		explorer.GET("/plot.png", s.handlePlotPNG)
		explorer.GET("/export.csv", s.handleExportCSV)
		explorer.GET("/export.xlsx", s.handleExportXLSX)
		explorer.GET("/overlap", s.handleOverlap)
		explorer.GET("/overlap.csv", s.handleOverlapCSV)
	}

	api := s.router.Group("/api", middleware.EnsureSession(s.sessions))
	{
		api.GET("/frame", s.handleFrame)
		api.GET("/uploads", s.handleUploads)
	}

	s.router.GET("/pipeline", s.handlePipeline)
	s.router.GET("/pipeline.sh", s.handlePipelineScript)
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"num": formatNumber,
		"pval": func(v float64) string {
			if math.IsNaN(v) {
				return "NA"
			}
			return fmt.Sprintf("%.3g", v)
		},
		"classLabel": func(c results.Class) string {
			switch c {
			case results.ClassUp:
				return "Up"
			case results.ClassDown:
				return "Down"
			}
			return "Not significant"
		},
		"color": func(c results.Class) string { return volcano.Palette[c] },
		"mid":   func(a, b float64) float64 { return (a + b) / 2 },
		"extra": func(row results.Row, header string) string { return row.Extra[header] },
		"join":  func(genes []string) string { return strings.Join(genes, ", ") },
	}
}

// formatNumber prints statistics compactly; NaN prints as NA like R.
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NA"
	case math.IsInf(v, 1):
		return "Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return fmt.Sprintf("%.4g", v)
}
