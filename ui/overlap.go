package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"deview/domain/core"
	"deview/domain/results"
	"deview/domain/upload"
	apperrors "deview/internal/errors"
	"deview/internal/overlap"
	"deview/ui/middleware"

	"github.com/gin-gonic/gin"
)

type overlapPage struct {
	Title         string
	Uploads       []*upload.Upload
	Selected      map[core.UploadID]bool
	Direction     overlap.Direction
	Directions    []overlap.Direction
	CaseSensitive bool
	Threshold     results.Threshold
	Result        *overlap.Result
	CSVURL        template.URL
	ExclusiveURL  template.URL
	Error         string
}

type overlapRequest struct {
	ids       []core.UploadID
	direction overlap.Direction
	opts      overlap.Options
}

// parseOverlapQuery reads ?ids=a&ids=b (or ids=a,b), direction and case.
func parseOverlapQuery(c *gin.Context) (overlapRequest, error) {
	var req overlapRequest
	for _, v := range c.QueryArray("ids") {
		for _, raw := range strings.Split(v, ",") {
			if raw = strings.TrimSpace(raw); raw != "" {
				req.ids = append(req.ids, core.UploadID(raw))
			}
		}
	}
	d, err := overlap.ParseDirection(c.Query("direction"))
	if err != nil {
		return req, apperrors.InvalidInput(err.Error())
	}
	req.direction = d
	req.opts.CaseSensitive = c.Query("case") == "sensitive"
	return req, nil
}

func (s *Server) handleOverlap(c *gin.Context) {
	sess := middleware.Session(c)
	ctx := c.Request.Context()

	page := overlapPage{
		Title:      "Gene set overlap",
		Selected:   map[core.UploadID]bool{},
		Direction:  overlap.DirectionBoth,
		Directions: []overlap.Direction{overlap.DirectionBoth, overlap.DirectionUp, overlap.DirectionDown},
		Threshold:  sess.State().Threshold,
	}
	uploads, err := s.service.Uploads(ctx, recentUploads)
	if err != nil {
		s.logger.Warn("failed to list uploads: %v", err)
	}
	page.Uploads = uploads

	req, err := parseOverlapQuery(c)
	if err != nil {
		page.Error = err.Error()
		s.renderTemplate(c, http.StatusBadRequest, "overlap.html", page)
		return
	}
	page.Direction = req.direction
	page.CaseSensitive = req.opts.CaseSensitive
	for _, id := range req.ids {
		page.Selected[id] = true
	}
	if len(req.ids) == 0 {
		s.renderTemplate(c, http.StatusOK, "overlap.html", page)
		return
	}

	res, err := s.service.Overlap(ctx, req.ids, page.Threshold, req.direction, req.opts)
	if err != nil {
		page.Error = err.Error()
		s.renderTemplate(c, overlapStatus(err), "overlap.html", page)
		return
	}
	page.Result = &res
	page.CSVURL, page.ExclusiveURL = overlapCSVLinks(c.Request.URL.Query())
	s.renderTemplate(c, http.StatusOK, "overlap.html", page)
}

// handleOverlapCSV serves ?kind=intersections (default) or ?kind=exclusive.
func (s *Server) handleOverlapCSV(c *gin.Context) {
	req, err := parseOverlapQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	write, name := overlap.WriteIntersectionsCSV, "intersections.csv"
	switch c.DefaultQuery("kind", "intersections") {
	case "intersections":
	case "exclusive":
		write, name = overlap.WriteExclusivesCSV, "exclusive_elements.csv"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown kind %q: use intersections or exclusive", c.Query("kind"))})
		return
	}

	threshold := middleware.Session(c).State().Threshold
	res, err := s.service.Overlap(c.Request.Context(), req.ids, threshold, req.direction, req.opts)
	if err != nil {
		c.JSON(overlapStatus(err), gin.H{"error": err.Error()})
		return
	}
	s.attachment(c, name, "text/csv; charset=utf-8", func(w io.Writer) error { return write(w, res) })
}

// overlapCSVLinks points the downloads at the comparison currently shown.
func overlapCSVLinks(q url.Values) (template.URL, template.URL) {
	q.Del("kind")
	intersections := "/overlap.csv?" + q.Encode()
	q.Set("kind", "exclusive")
	// built from url.Values encoding, so every parameter is escaped
	return template.URL(intersections), template.URL("/overlap.csv?" + q.Encode())
}

func (s *Server) attachment(c *gin.Context, name, contentType string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		s.logger.Error("failed to write %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func overlapStatus(err error) int {
	switch {
	case apperrors.GetCode(err) == apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case core.IsNotFoundError(err), core.IsLoadError(err):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
