// Package report compiles finished executions into narrative reports.
//
// A report is an ordered list of sections, one per workflow step, plus an
// ending note that weighs the outcomes against the task category's success
// criteria. The note prefers the configured text-generation provider and
// falls back to a deterministic template, so compilation never fails.
package report

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/webpilot-ai/webpilot/pkg/executor"
	"github.com/webpilot-ai/webpilot/pkg/llm"
	"github.com/webpilot-ai/webpilot/pkg/llm/tokenizer"
	"github.com/webpilot-ai/webpilot/pkg/logging"
	"github.com/webpilot-ai/webpilot/pkg/types"
	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

const (
	endingNoteSystemPrompt = "You write closing notes for automated browser workflow reports. " +
		"Reply with two to four sentences of plain prose covering what happened, whether the " +
		"task's goal was met, and one concrete follow-up. No headings, no lists, no markup."

	// maxNotePromptTokens bounds the step-outcome listing fed to the model.
	maxNotePromptTokens = 4000

	// SectionSkipped marks a section for a step the run never reached.
	SectionSkipped = "skipped"

	// GeneratedByModel and GeneratedByTemplate record which path produced
	// the ending note.
	GeneratedByModel    = "model"
	GeneratedByTemplate = "template"
)

// Section is one narrative unit of a report.
type Section struct {
	Index      int    `json:"index"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Status     string `json:"status"`
	Screenshot string `json:"screenshot,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// Report is the compiled narrative for one execution, keyed by its id.
type Report struct {
	ExecutionID string    `json:"execution_id"`
	Task        string    `json:"task,omitempty"`
	Category    Category  `json:"category"`
	Status      string    `json:"status"`
	Sections    []Section `json:"sections"`
	EndingNote  string    `json:"ending_note"`
	GeneratedBy string    `json:"generated_by"`
	Degraded    bool      `json:"degraded,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Compiler turns execution sessions into reports.
type Compiler struct {
	provider  llm.Provider
	tokenizer *tokenizer.Tokenizer
	logger    *logging.Logger
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithProvider enables model-written ending notes. Without a provider the
// compiler always uses the deterministic template.
func WithProvider(provider llm.Provider) CompilerOption {
	return func(c *Compiler) {
		if provider != nil {
			c.provider = provider
		}
	}
}

// NewCompiler creates a report compiler.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		logger: logging.NewLogger("report"),
	}
	for _, opt := range opts {
		opt(c)
	}
	tok, err := tokenizer.New()
	if err != nil {
		// Estimate covers budgeting when the encoding will not load.
		c.logger.Debugf("tokenizer unavailable: %v", err)
	} else {
		c.tokenizer = tok
	}
	return c
}

// Compile builds the report for a session. The task text, when known, feeds
// the narrative prompt and is echoed on the report. Compile always returns a
// renderable report; narrative-generation failures degrade to the template
// note.
func (c *Compiler) Compile(ctx context.Context, session *executor.Session, task string) *Report {
	steps := session.Steps()
	category := DetectCategory(steps)

	report := &Report{
		ExecutionID: session.ID(),
		Task:        task,
		Category:    category,
		Status:      string(session.Status()),
		Sections:    c.buildSections(session, steps),
		GeneratedAt: time.Now(),
	}
	report.EndingNote, report.GeneratedBy, report.Degraded = c.endingNote(ctx, session, steps, category, task)
	return report
}

func (c *Compiler) buildSections(session *executor.Session, steps []workflow.Step) []Section {
	if len(steps) == 0 {
		return []Section{{
			Index:  0,
			Title:  "Execution",
			Body:   "The workflow contained no steps; nothing was executed.",
			Status: string(executor.StatusSuccess),
		}}
	}

	sections := make([]Section, 0, len(steps))
	for i, step := range steps {
		section := Section{
			Index: i,
			Title: fmt.Sprintf("Step %d: %s", i+1, step.Summary()),
		}
		result := session.Result(i)
		if result == nil {
			section.Status = SectionSkipped
			section.Body = "Not executed; the run halted earlier."
		} else {
			section.Status = string(result.Status)
			section.Body = result.Message
			section.DurationMs = result.DurationMs
			if result.Data != "" {
				section.Body += "\n\nExtracted data:\n" + excerpt(result.Data, 2000)
			}
			if len(result.Screenshot) > 0 {
				section.Screenshot = ScreenshotName(i)
			}
		}
		sections = append(sections, section)
	}
	return sections
}

func (c *Compiler) endingNote(ctx context.Context, session *executor.Session, steps []workflow.Step, category Category, task string) (note, generatedBy string, degraded bool) {
	fallback := c.templateNote(session, steps, category)
	if c.provider == nil {
		return fallback, GeneratedByTemplate, false
	}

	note, err := c.generateNote(ctx, session, steps, category, task)
	if err == nil && note != "" {
		return note, GeneratedByModel, false
	}
	if err == nil {
		err = fmt.Errorf("empty model response")
	}
	stepErr := types.NewStepError(types.ErrorKindReportDegraded, "narrative generation failed: %v", err)
	c.logger.Warnf("%v", stepErr)
	return fallback, GeneratedByTemplate, true
}

// templateNote is the deterministic ending note built solely from step
// results. It is both the fallback and the floor the model note must beat.
func (c *Compiler) templateNote(session *executor.Session, steps []workflow.Step, category Category) string {
	executed := session.ExecutedSteps()
	total := len(steps)

	var b strings.Builder
	switch {
	case total == 0:
		b.WriteString("The workflow contained no steps, so there was nothing to execute.")
	case executed == total:
		fmt.Fprintf(&b, "All %d steps completed successfully.", total)
	default:
		fmt.Fprintf(&b, "%d of %d steps completed.", executed, total)
		for i := 0; i < total; i++ {
			if r := session.Result(i); r != nil && !r.Succeeded() {
				fmt.Fprintf(&b, " The run halted at step %d: %s.", i+1, r.Message)
				break
			}
		}
	}
	fmt.Fprintf(&b, " Success for this kind of task means %s.", category.Criteria())
	b.WriteString(" Suggested follow-up: " + category.FollowUp())
	return b.String()
}

func (c *Compiler) generateNote(ctx context.Context, session *executor.Session, steps []workflow.Step, category Category, task string) (string, error) {
	messages := []*types.Message{
		types.NewSystemMessage(endingNoteSystemPrompt),
		types.NewUserMessage(c.buildNotePrompt(session, steps, category, task)),
	}
	msg, err := c.provider.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	return strings.TrimSpace(stripThinking(msg.Content)), nil
}

func (c *Compiler) buildNotePrompt(session *executor.Session, steps []workflow.Step, category Category, task string) string {
	var b strings.Builder
	b.WriteString("A browser workflow just finished. Write its closing note.\n\n")
	if task != "" {
		fmt.Fprintf(&b, "Task: %s\n", task)
	}
	fmt.Fprintf(&b, "Task category: %s\n", category)
	fmt.Fprintf(&b, "Success criteria: %s\n", category.Criteria())
	fmt.Fprintf(&b, "Overall status: %s\n\n", session.Status())
	b.WriteString("Step outcomes:\n")
	b.WriteString(c.stepOutcomes(session, steps))
	return b.String()
}

func (c *Compiler) stepOutcomes(session *executor.Session, steps []workflow.Step) string {
	var b strings.Builder
	budget := maxNotePromptTokens
	for i, step := range steps {
		line := fmt.Sprintf("%d. %s: ", i+1, step.Summary())
		result := session.Result(i)
		switch {
		case result == nil:
			line += "not executed"
		case result.Succeeded():
			line += "ok"
			if result.Data != "" {
				line += ", extracted: " + excerpt(result.Data, 200)
			}
		default:
			line += "failed, " + result.Message
		}
		line += "\n"

		cost := c.countTokens(line)
		if cost > budget {
			b.WriteString("(remaining steps omitted for length)\n")
			break
		}
		budget -= cost
		b.WriteString(line)
	}
	return b.String()
}

func (c *Compiler) countTokens(text string) int {
	if c.tokenizer != nil {
		return c.tokenizer.CountTokens(text)
	}
	return tokenizer.Estimate(text)
}

// ScreenshotName returns the artifact-relative file name for the step at
// index. Sections and the artifact writer share this naming.
func ScreenshotName(index int) string {
	return fmt.Sprintf("step-%d.png", index+1)
}

var thinkingBlock = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)

// stripThinking removes reasoning blocks some models wrap around their
// answer.
func stripThinking(s string) string {
	return thinkingBlock.ReplaceAllString(s, "")
}

func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
