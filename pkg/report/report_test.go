package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpilot-ai/webpilot/pkg/executor"
	"github.com/webpilot-ai/webpilot/pkg/llm"
	"github.com/webpilot-ai/webpilot/pkg/types"
	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

type fakeProvider struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeProvider) Complete(_ context.Context, messages []*types.Message) (*types.Message, error) {
	for _, msg := range messages {
		if msg.Role == types.RoleUser {
			f.prompts = append(f.prompts, msg.Content)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return types.NewAssistantMessage(f.reply), nil
}

func (f *fakeProvider) StreamCompletion(_ context.Context, _ []*types.Message) (<-chan *llm.StreamChunk, error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Name: "fake", Provider: "fake"}
}

func (f *fakeProvider) GetModel() string { return "fake" }

// successfulSession builds a two-step session where everything worked.
func successfulSession() *executor.Session {
	session := executor.NewSession([]workflow.Step{
		{Type: workflow.StepNavigate, URL: "https://www.amazon.com/gp/cart"},
		{Type: workflow.StepClick, Selector: "#checkout", Description: "Proceed to checkout"},
	})
	session.RecordResult(0, &executor.Result{
		StepType:   workflow.StepNavigate,
		Status:     executor.StatusSuccess,
		Message:    "Navigated to https://www.amazon.com/gp/cart",
		Screenshot: []byte("png-0"),
		DurationMs: 812,
	})
	session.RecordResult(1, &executor.Result{
		StepType:   workflow.StepClick,
		Status:     executor.StatusSuccess,
		Message:    "Clicked #checkout",
		Screenshot: []byte("png-1"),
		DurationMs: 233,
	})
	session.SetStatus(executor.SessionRunning)
	session.SetStatus(executor.SessionSuccess)
	return session
}

// haltedSession builds a three-step session that failed at the second step.
func haltedSession() *executor.Session {
	session := executor.NewSession([]workflow.Step{
		{Type: workflow.StepNavigate, URL: "https://example.com/login"},
		{Type: workflow.StepClick, Selector: "#submit"},
		{Type: workflow.StepScreenshot},
	})
	session.RecordResult(0, &executor.Result{
		StepType:   workflow.StepNavigate,
		Status:     executor.StatusSuccess,
		Message:    "Navigated to https://example.com/login",
		Screenshot: []byte("png-0"),
	})
	session.RecordResult(1, &executor.Result{
		StepType:  workflow.StepClick,
		Status:    executor.StatusError,
		Message:   "element_not_found: no element matched \"#submit\"",
		ErrorKind: types.ErrorKindElementNotFound,
	})
	session.SetStatus(executor.SessionRunning)
	session.SetStatus(executor.SessionError)
	return session
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name  string
		steps []workflow.Step
		want  Category
	}{
		{
			name: "ecommerce by url and description",
			steps: []workflow.Step{
				{Type: workflow.StepNavigate, URL: "https://www.amazon.com/gp/cart"},
				{Type: workflow.StepClick, Selector: "#checkout", Description: "Proceed to checkout"},
			},
			want: CategoryEcommerce,
		},
		{
			name: "project management tracker",
			steps: []workflow.Step{
				{Type: workflow.StepNavigate, URL: "https://jira.atlassian.net/browse/PROJ-1"},
				{Type: workflow.StepClick, Selector: "move", Description: "Move the ticket to the sprint board"},
			},
			want: CategoryProjectManagement,
		},
		{
			name: "travel booking",
			steps: []workflow.Step{
				{Type: workflow.StepNavigate, URL: "https://www.kayak.com/flights"},
				{Type: workflow.StepTypeText, Selector: "#origin", Value: "SFO", Description: "Search a flight"},
			},
			want: CategoryTravelBooking,
		},
		{
			name: "content research",
			steps: []workflow.Step{
				{Type: workflow.StepNavigate, URL: "https://en.wikipedia.org/wiki/Go_(programming_language)"},
				{Type: workflow.StepExtract, Selector: "#content", Description: "Extract the article summary"},
			},
			want: CategoryContentResearch,
		},
		{
			name: "document creation",
			steps: []workflow.Step{
				{Type: workflow.StepNavigate, URL: "https://docs.google.com/document/create"},
				{Type: workflow.StepTypeText, Selector: "#body", Value: "Hello", Description: "Write the draft"},
			},
			want: CategoryDocumentCreation,
		},
		{
			name: "no keyword hits",
			steps: []workflow.Step{
				{Type: workflow.StepNavigate, URL: "https://example.com"},
			},
			want: CategoryGeneric,
		},
		{
			name:  "empty workflow",
			steps: nil,
			want:  CategoryGeneric,
		},
		{
			name: "tie breaks toward the earlier category",
			steps: []workflow.Step{
				{Type: workflow.StepNavigate, URL: "https://example.com", Description: "board cart"},
			},
			want: CategoryProjectManagement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCategory(tt.steps))
		})
	}
}

func TestCompile_SuccessfulRun(t *testing.T) {
	compiler := NewCompiler()
	rep := compiler.Compile(context.Background(), successfulSession(), "")

	assert.Equal(t, CategoryEcommerce, rep.Category)
	assert.Equal(t, string(executor.SessionSuccess), rep.Status)
	assert.Equal(t, GeneratedByTemplate, rep.GeneratedBy)
	assert.False(t, rep.Degraded)
	assert.False(t, rep.GeneratedAt.IsZero())

	require.Len(t, rep.Sections, 2)
	assert.Equal(t, "Step 1: Navigate to https://www.amazon.com/gp/cart", rep.Sections[0].Title)
	assert.Equal(t, "step-1.png", rep.Sections[0].Screenshot)
	assert.Equal(t, int64(812), rep.Sections[0].DurationMs)
	assert.Equal(t, "Step 2: Proceed to checkout", rep.Sections[1].Title)
	assert.Equal(t, "step-2.png", rep.Sections[1].Screenshot)

	assert.Contains(t, rep.EndingNote, "All 2 steps completed successfully")
	assert.Contains(t, rep.EndingNote, "Suggested follow-up:")
}

func TestCompile_HaltedRunMarksSkippedSteps(t *testing.T) {
	compiler := NewCompiler()
	rep := compiler.Compile(context.Background(), haltedSession(), "")

	require.Len(t, rep.Sections, 3)
	assert.Equal(t, string(executor.StatusSuccess), rep.Sections[0].Status)
	assert.Equal(t, string(executor.StatusError), rep.Sections[1].Status)
	assert.Empty(t, rep.Sections[1].Screenshot)
	assert.Equal(t, SectionSkipped, rep.Sections[2].Status)
	assert.Contains(t, rep.Sections[2].Body, "halted earlier")

	assert.Contains(t, rep.EndingNote, "1 of 3 steps completed")
	assert.Contains(t, rep.EndingNote, "halted at step 2")
}

func TestCompile_ZeroStepsStillRenders(t *testing.T) {
	compiler := NewCompiler()
	rep := compiler.Compile(context.Background(), executor.NewSession(nil), "")

	require.Len(t, rep.Sections, 1)
	assert.Equal(t, "Execution", rep.Sections[0].Title)
	assert.NotEmpty(t, rep.Sections[0].Body)
	assert.NotEmpty(t, rep.EndingNote)
	assert.Equal(t, CategoryGeneric, rep.Category)
}

func TestCompile_ModelNoteStripsThinking(t *testing.T) {
	provider := &fakeProvider{
		reply: "<thinking>weighing outcomes</thinking>The cart now holds the item and checkout succeeded. Confirm the order email arrives.",
	}
	compiler := NewCompiler(WithProvider(provider))
	rep := compiler.Compile(context.Background(), successfulSession(), "Buy the usual coffee beans")

	assert.False(t, rep.Degraded)
	assert.Equal(t, GeneratedByModel, rep.GeneratedBy)
	assert.Equal(t, "Buy the usual coffee beans", rep.Task)
	assert.Equal(t, "The cart now holds the item and checkout succeeded. Confirm the order email arrives.", rep.EndingNote)
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "Task: Buy the usual coffee beans")
	assert.Contains(t, provider.prompts[0], "Task category: E-commerce")
	assert.Contains(t, provider.prompts[0], "1. Navigate to https://www.amazon.com/gp/cart: ok")
}

func TestCompile_ProviderFailureFallsBackToTemplate(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	compiler := NewCompiler(WithProvider(provider))
	rep := compiler.Compile(context.Background(), successfulSession(), "")

	assert.True(t, rep.Degraded)
	assert.Equal(t, GeneratedByTemplate, rep.GeneratedBy)
	assert.Contains(t, rep.EndingNote, "All 2 steps completed successfully")
}

func TestCompile_EmptyModelResponseFallsBack(t *testing.T) {
	provider := &fakeProvider{reply: "   "}
	compiler := NewCompiler(WithProvider(provider))
	rep := compiler.Compile(context.Background(), successfulSession(), "")

	assert.True(t, rep.Degraded)
	assert.Contains(t, rep.EndingNote, "All 2 steps completed successfully")
}

func TestCompile_ExtractedDataFlowsIntoSectionAndPrompt(t *testing.T) {
	session := executor.NewSession([]workflow.Step{
		{Type: workflow.StepExtract, Selector: "#price"},
	})
	session.RecordResult(0, &executor.Result{
		StepType:   workflow.StepExtract,
		Status:     executor.StatusSuccess,
		Message:    "Extracted 12 characters from #price",
		Data:       "Price: $19.99",
		Screenshot: []byte("png"),
	})
	session.SetStatus(executor.SessionRunning)
	session.SetStatus(executor.SessionSuccess)

	provider := &fakeProvider{reply: "Done."}
	compiler := NewCompiler(WithProvider(provider))
	rep := compiler.Compile(context.Background(), session, "")

	assert.Contains(t, rep.Sections[0].Body, "Extracted data:\nPrice: $19.99")
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "extracted: Price: $19.99")
}

func TestArtifactWriter_WriteAll(t *testing.T) {
	dir := t.TempDir()
	session := haltedSession()
	compiler := NewCompiler()
	rep := compiler.Compile(context.Background(), session, "Log in to the portal")

	writer := NewArtifactWriter(dir)
	require.NoError(t, writer.WriteAll(rep, session.Results()))

	artifactDir := writer.Dir(rep.ExecutionID)

	data, err := os.ReadFile(filepath.Join(artifactDir, "report.json"))
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.ExecutionID, decoded.ExecutionID)
	assert.Len(t, decoded.Sections, 3)

	md, err := os.ReadFile(filepath.Join(artifactDir, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Workflow Execution Report")
	assert.Contains(t, string(md), "**Task:** Log in to the portal")
	assert.Contains(t, string(md), "✅")
	assert.Contains(t, string(md), "❌")
	assert.Contains(t, string(md), "## Ending Note")
	assert.Contains(t, string(md), "![step 1 screenshot](step-1.png)")

	shot, err := os.ReadFile(filepath.Join(artifactDir, "step-1.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-0"), shot)

	_, err = os.Stat(filepath.Join(artifactDir, "step-2.png"))
	assert.True(t, os.IsNotExist(err), "failed step had no capture, so no file")
}

func TestStripThinking(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no block", "Plain answer.", "Plain answer."},
		{"single block", "<thinking>hmm</thinking>Answer.", "Answer."},
		{"multiline block", "<thinking>line one\nline two</thinking>Answer.", "Answer."},
		{"multiple blocks", "<thinking>a</thinking>First.<thinking>b</thinking> Second.", "First. Second."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripThinking(tt.input))
		})
	}
}
