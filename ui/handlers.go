package ui

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"deview/domain/core"
	"deview/domain/results"
	"deview/domain/upload"
	"deview/internal/export"
	"deview/internal/session"
	"deview/internal/summary"
	"deview/internal/volcano"
	"deview/ui/middleware"

	"github.com/gin-gonic/gin"
)

const (
	recentUploads = 20

	plotWidth  = 760
	plotHeight = 520

	histWidth  = 300.0
	histHeight = 80.0

	// multipart framing allowed on top of the file size limit
	multipartSlack = 1 << 20
)

var uploadExtensions = map[string]bool{
	".csv": true, ".tsv": true, ".tab": true, ".txt": true, ".xlsx": true,
}

type legendEntry struct {
	Class results.Class
	Count int
}

type histBar struct {
	summary.Bin
	X, Y, Width, Height float64
}

type indexPage struct {
	Title       string
	Frame       session.Frame
	Canvas      volcano.Canvas
	Legend      []legendEntry
	Histogram   []histBar
	HistWidth   float64
	HistHeight  float64
	Extras      []string
	Uploads     []*upload.Upload
	MyUploads   []*upload.Upload
	MaxUploadMB int64
	Bases       []results.Column
}

func (s *Server) handleIndex(c *gin.Context) {
	sess := middleware.Session(c)
	frame := s.service.Frame(sess)

	uploads, err := s.service.Uploads(c.Request.Context(), recentUploads)
	if err != nil {
		s.logger.Warn("failed to list uploads: %v", err)
		uploads = nil
	}
	mine, err := s.service.SessionUploads(c.Request.Context(), sess, recentUploads)
	if err != nil {
		s.logger.Warn("failed to list session uploads: %v", err)
		mine = nil
	}

	page := indexPage{
		Title:       "DE results explorer",
		Frame:       frame,
		Canvas:      volcano.Layout(frame.Plot, plotWidth, plotHeight),
		Histogram:   histogramBars(frame.Summary.PValues),
		HistWidth:   histWidth,
		HistHeight:  histHeight,
		Extras:      frame.Table().ExtraHeaders(),
		Uploads:     uploads,
		MyUploads:   mine,
		MaxUploadMB: s.opts.MaxUploadBytes >> 20,
		Bases:       []results.Column{results.ColumnAdjPValue, results.ColumnPValue},
	}
	for _, class := range results.Classes {
		page.Legend = append(page.Legend, legendEntry{Class: class, Count: frame.Plot.Counts[class]})
	}
	s.renderTemplate(c, http.StatusOK, "index.html", page)
}

func histogramBars(bins []summary.Bin) []histBar {
	if len(bins) == 0 {
		return nil
	}
	peak := 0
	for _, b := range bins {
		if b.Count > peak {
			peak = b.Count
		}
	}
	width := histWidth / float64(len(bins))
	bars := make([]histBar, len(bins))
	for i, b := range bins {
		h := 0.0
		if peak > 0 {
			h = float64(b.Count) / float64(peak) * histHeight
		}
		bars[i] = histBar{Bin: b, X: float64(i) * width, Y: histHeight - h, Width: width - 1, Height: h}
	}
	return bars
}

// respond redirects browsers back to the page and answers API clients with
// the new frame.
func (s *Server) respond(c *gin.Context, sess *session.Session) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusOK, s.service.Frame(sess))
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) fail(c *gin.Context, sess *session.Session, err error) {
	sess.Do(func(st session.State) session.State { return st.LoadFailed(err) })
	s.respond(c, sess)
}

func (s *Server) handleUpload(c *gin.Context) {
	sess := middleware.Session(c)
	limit := s.opts.MaxUploadBytes
	if c.Request.ContentLength > limit+multipartSlack {
		s.fail(c, sess, fmt.Errorf("file exceeds the %d MB upload limit", limit>>20))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, sess, fmt.Errorf("file exceeds the %d MB upload limit", limit>>20))
			return
		}
		s.fail(c, sess, fmt.Errorf("no results file received: %w", err))
		return
	}
	defer file.Close()

	if header.Size > limit {
		s.fail(c, sess, fmt.Errorf("%s exceeds the %d MB upload limit", header.Filename, limit>>20))
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadExtensions[ext] {
		s.fail(c, sess, fmt.Errorf("unsupported file type %q: upload a .csv, .tsv, .txt or .xlsx results table", ext))
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.fail(c, sess, fmt.Errorf("failed to read %s: %w", header.Filename, err))
		return
	}
	if int64(len(content)) > limit {
		s.fail(c, sess, fmt.Errorf("%s exceeds the %d MB upload limit", header.Filename, limit>>20))
		return
	}

	s.service.Upload(c.Request.Context(), sess, header.Filename, content)
	s.respond(c, sess)
}

func (s *Server) handleState(c *gin.Context) {
	sess := middleware.Session(c)
	controls := session.Controls{
		Filter:           c.PostForm("filter"),
		Sort:             c.PostForm("sort"),
		PCutoff:          c.PostForm("p_cutoff"),
		FoldChangeCutoff: c.PostForm("fc_cutoff"),
		Basis:            c.PostForm("basis"),
	}
	sess.Do(func(st session.State) session.State { return st.Apply(controls) })
	s.respond(c, sess)
}

func (s *Server) handleReset(c *gin.Context) {
	sess := middleware.Session(c)
	sess.Do(session.State.Reset)
	s.respond(c, sess)
}

func (s *Server) handleReopen(c *gin.Context) {
	sess := middleware.Session(c)
	id, err := core.ParseUploadID(c.Param("id"))
	if err != nil {
		s.fail(c, sess, err)
		return
	}
	s.service.Reopen(c.Request.Context(), sess, id)
	s.respond(c, sess)
}

func (s *Server) handleFrame(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Frame(middleware.Session(c)))
}

// handleUploads lists the catalog; ?scope=session restricts it to this browser.
func (s *Server) handleUploads(c *gin.Context) {
	limit := queryInt(c, "limit", recentUploads, 1, 500)
	var (
		uploads []*upload.Upload
		err     error
	)
	switch c.DefaultQuery("scope", "all") {
	case "all":
		uploads, err = s.service.Uploads(c.Request.Context(), limit)
	case "session":
		uploads, err = s.service.SessionUploads(c.Request.Context(), middleware.Session(c), limit)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be all or session"})
		return
	}
	if err != nil {
		s.logger.Error("failed to list uploads: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list uploads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

func (s *Server) handlePlotPNG(c *gin.Context) {
	frame := s.service.Frame(middleware.Session(c))

	opts := volcano.DefaultChartOptions()
	opts.Width = queryInt(c, "width", opts.Width, 200, 4000)
	opts.Height = queryInt(c, "height", opts.Height, 200, 4000)
	if frame.Source != "" {
		opts.Title = filepath.Base(frame.Source)
	}

	var buf bytes.Buffer
	if err := volcano.RenderPNG(&buf, frame.Plot, opts); err != nil {
		s.logger.Error("failed to render plot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render plot"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", exportName(frame.Source, ".png")))
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleExportCSV(c *gin.Context) {
	s.export(c, ".csv", "text/csv; charset=utf-8", export.WriteCSV)
}

func (s *Server) handleExportXLSX(c *gin.Context) {
	s.export(c, ".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteXLSX)
}

func (s *Server) export(c *gin.Context, ext, contentType string, write func(io.Writer, *results.Table, *results.View) error) {
	frame := s.service.Frame(middleware.Session(c))
	if !frame.Loaded {
		c.JSON(http.StatusNotFound, gin.H{"error": "no results loaded"})
		return
	}

	s.attachment(c, exportName(frame.Source, ext), contentType, func(w io.Writer) error {
		return write(w, frame.Table(), &frame.View)
	})
}

// exportName derives a download name from the loaded file, e.g.
// DE_results_36h_vs_0h.csv becomes DE_results_36h_vs_0h_view.xlsx.
func exportName(source, ext string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "results"
	}
	return base + "_view" + ext
}

func queryInt(c *gin.Context, key string, def, min, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
