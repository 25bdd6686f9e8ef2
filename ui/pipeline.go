package ui

import (
	"html/template"
	"net/http"

	"deview/internal/pipeline"

	"github.com/gin-gonic/gin"
)

const defaultRunID = "SRR1234567"

type pipelinePage struct {
	Title    string
	RunID    string
	Contrast string
	Plan     pipeline.Plan
	Body     template.HTML
	Error    string
}

// planFromQuery builds the plan for ?run=SRR...&contrast=36h-0h, falling
// back to the example run and the default contrast.
func (s *Server) planFromQuery(c *gin.Context) (pipeline.Plan, string, error) {
	runID := c.DefaultQuery("run", defaultRunID)
	contrast := pipeline.DefaultContrast()
	name := c.DefaultQuery("contrast", contrast.Name())

	parsed, err := pipeline.ParseContrast(name, contrast.Groups)
	if err != nil {
		return pipeline.Plan{}, name, err
	}
	plan, err := pipeline.NewPlan(runID, pipeline.DefaultLayout(s.opts.PipelineRoot), parsed)
	return plan, name, err
}

func (s *Server) handlePipeline(c *gin.Context) {
	page := pipelinePage{Title: "RNA-seq workflow", RunID: c.DefaultQuery("run", defaultRunID)}

	plan, contrast, err := s.planFromQuery(c)
	page.Contrast = contrast
	if err != nil {
		page.Error = err.Error()
		s.renderTemplate(c, http.StatusBadRequest, "pipeline.html", page)
		return
	}

	body, err := plan.HTML()
	if err != nil {
		page.Error = err.Error()
		s.renderTemplate(c, http.StatusInternalServerError, "pipeline.html", page)
		return
	}
	page.Plan = plan
	// rendered from our own markdown; inputs are validated accession and group names
	page.Body = template.HTML(body)
	s.renderTemplate(c, http.StatusOK, "pipeline.html", page)
}

func (s *Server) handlePipelineScript(c *gin.Context) {
	plan, _, err := s.planFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+plan.RunID+`_workflow.sh"`)
	c.Data(http.StatusOK, "text/x-shellscript; charset=utf-8", []byte(plan.Script()))
}
