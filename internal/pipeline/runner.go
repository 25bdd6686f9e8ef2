package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"deview/internal"
)

// Runner prints or executes a plan. Dry runs are the default: the external
// tools are large and usually live on an HPC host, not next to the explorer.
type Runner struct {
	out    io.Writer
	dryRun bool
	logger *internal.Logger

	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewRunner creates a runner writing command output to out.
func NewRunner(out io.Writer, dryRun bool) *Runner {
	return &Runner{
		out:      out,
		dryRun:   dryRun,
		logger:   internal.DefaultLogger.With("Pipeline"),
		lookPath: exec.LookPath,
		command:  exec.CommandContext,
	}
}

// Run walks the plan in order and stops at the first failing step. The
// R stage writes the script next to the results and runs it with Rscript.
func (r *Runner) Run(ctx context.Context, plan Plan) error {
	script, err := plan.RScript()
	if err != nil {
		return err
	}
	scriptPath := filepath.Join(plan.Layout.ResultsDir(), "de_analysis.R")

	if r.dryRun {
		fmt.Fprintf(r.out, "# dry run for %s; pass --execute to run\n", plan.RunID)
		for _, s := range plan.Steps {
			fmt.Fprintf(r.out, "\n$ %s\n", s)
		}
		fmt.Fprintf(r.out, "\n$ Rscript %s\n\n# %s\n%s", scriptPath, scriptPath, script)
		return nil
	}

	for _, d := range plan.Layout.Dirs() {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	steps := append([]Step(nil), plan.Steps...)
	steps = append(steps, Step{Stage: StageDiffExpr, Name: "Rscript", Command: []string{"Rscript", scriptPath}})
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		return fmt.Errorf("failed to write R script: %w", err)
	}

	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.lookPath(s.Command[0]); err != nil {
			return fmt.Errorf("step %d (%s): %s not installed: %w", i+1, s.Name, s.Command[0], err)
		}
		r.logger.Info("step %d/%d %s: %s", i+1, len(steps), s.Name, s)
		start := time.Now()

		cmd := r.command(ctx, s.Command[0], s.Command[1:]...)
		cmd.Dir = s.Dir
		cmd.Stdout = r.out
		cmd.Stderr = r.out
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("step %d (%s) failed: %w", i+1, s.Name, err)
		}
		r.logger.Debug("step %s finished in %v", s.Name, time.Since(start))
	}
	r.logger.Info("pipeline for %s complete; results at %s", plan.RunID, plan.ResultsFile())
	return nil
}
