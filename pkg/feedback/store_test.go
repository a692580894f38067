package feedback

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// flightSubmission is a correction where the click selector of step 2 was
// fixed by the user.
func flightSubmission() Submission {
	return Submission{
		OriginalTask: "Book a flight from SFO to Tokyo",
		GeneratedSteps: []workflow.Step{
			{Type: workflow.StepNavigate, URL: "https://www.kayak.com"},
			{Type: workflow.StepClick, Selector: "#search"},
		},
		CorrectedSteps: []workflow.Step{
			{Type: workflow.StepNavigate, URL: "https://www.kayak.com"},
			{Type: workflow.StepClick, Selector: "#search-button"},
		},
		Type: FeedbackCorrection,
		URL:  "https://www.kayak.com/flights",
	}
}

func TestSubmitFeedback_StoresRecord(t *testing.T) {
	store := newTestStore(t)

	record, err := store.SubmitFeedback(context.Background(), flightSubmission())
	require.NoError(t, err)

	assert.Equal(t, Signature("Book a flight from SFO to Tokyo"), record.TaskSignature)
	assert.Equal(t, FeedbackCorrection, record.Type)
	assert.Equal(t, 1, record.Frequency)
	require.Len(t, record.Diffs, 1)
	assert.Equal(t, FieldDiff{Position: 1, Field: "selector", Old: "#search", New: "#search-button"}, record.Diffs[0])
	assert.Len(t, record.GeneratedSteps, 2)
	assert.Len(t, record.CorrectedSteps, 2)
}

func TestSubmitFeedback_RepeatIncrementsFrequency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SubmitFeedback(ctx, flightSubmission())
	require.NoError(t, err)
	record, err := store.SubmitFeedback(ctx, flightSubmission())
	require.NoError(t, err)

	assert.Equal(t, 2, record.Frequency)

	records, err := store.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1, "identical corrections merge into one record")
}

func TestSubmitFeedback_SameFieldShapeSharesRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SubmitFeedback(ctx, flightSubmission())
	require.NoError(t, err)

	// Same step and field corrected, but to a different value.
	sub := flightSubmission()
	sub.CorrectedSteps[1].Selector = "button.search-submit"
	record, err := store.SubmitFeedback(ctx, sub)
	require.NoError(t, err)

	assert.Equal(t, 2, record.Frequency)
}

func TestSubmitFeedback_DifferentFieldCreatesNewRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SubmitFeedback(ctx, flightSubmission())
	require.NoError(t, err)

	sub := flightSubmission()
	sub.CorrectedSteps = []workflow.Step{
		{Type: workflow.StepNavigate, URL: "https://www.kayak.com/flights"},
		{Type: workflow.StepClick, Selector: "#search"},
	}
	record, err := store.SubmitFeedback(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Frequency)

	records, err := store.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSubmitFeedback_AddedStepDiffsAsStepCount(t *testing.T) {
	store := newTestStore(t)

	sub := flightSubmission()
	sub.CorrectedSteps = append(sub.CorrectedSteps, workflow.Step{Type: workflow.StepWait, Timeout: 2000})
	record, err := store.SubmitFeedback(context.Background(), sub)
	require.NoError(t, err)

	require.Len(t, record.Diffs, 2)
	assert.Equal(t, "steps", record.Diffs[1].Field)
	assert.Equal(t, "2 steps", record.Diffs[1].Old)
	assert.Equal(t, "3 steps", record.Diffs[1].New)
}

func TestSubmitFeedback_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SubmitFeedback(ctx, Submission{Type: FeedbackCorrection})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "original task")

	_, err = store.SubmitFeedback(ctx, Submission{OriginalTask: "task", Type: "praise"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid feedback type")
}

func TestGetSuggestions_EmptyHistory(t *testing.T) {
	store := newTestStore(t)

	suggestions, err := store.GetSuggestions(context.Background(), "Book a flight", "")
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestGetSuggestions_SimilarTaskMatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SubmitFeedback(ctx, flightSubmission())
	require.NoError(t, err)

	suggestions, err := store.GetSuggestions(ctx, "Book a flight from SFO to Osaka", "")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.Equal(t, PriorityLow, s.Priority)
	assert.Equal(t, 1, s.Frequency)
	assert.Contains(t, s.Message, `"Book a flight from SFO to Tokyo"`)
	assert.Contains(t, s.Message, "the selector of step 2")
}

func TestGetSuggestions_UnrelatedTaskYieldsNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SubmitFeedback(ctx, flightSubmission())
	require.NoError(t, err)

	suggestions, err := store.GetSuggestions(ctx, "Water the office plants", "")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestGetSuggestions_SameSiteRaisesPriority(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SubmitFeedback(ctx, flightSubmission())
	require.NoError(t, err)

	suggestions, err := store.GetSuggestions(ctx, "Book a flight from SFO to Osaka", "https://www.kayak.com/explore")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	assert.Equal(t, PriorityMedium, suggestions[0].Priority)
	assert.Contains(t, suggestions[0].Message, "same site")
}

func TestGetSuggestions_FrequencyDrivesPriorityAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Selector correction submitted three times, URL correction once.
	for i := 0; i < 3; i++ {
		_, err := store.SubmitFeedback(ctx, flightSubmission())
		require.NoError(t, err)
	}
	urlFix := flightSubmission()
	urlFix.CorrectedSteps = []workflow.Step{
		{Type: workflow.StepNavigate, URL: "https://www.kayak.com/flights"},
		{Type: workflow.StepClick, Selector: "#search"},
	}
	_, err := store.SubmitFeedback(ctx, urlFix)
	require.NoError(t, err)

	suggestions, err := store.GetSuggestions(ctx, "Book a flight from SFO to Tokyo", "")
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, PriorityHigh, suggestions[0].Priority)
	assert.Equal(t, 3, suggestions[0].Frequency)
	assert.Contains(t, suggestions[0].Message, "3 times")
	assert.Equal(t, PriorityLow, suggestions[1].Priority)
	assert.Equal(t, 1, suggestions[1].Frequency)
}

func TestSignature(t *testing.T) {
	tests := []struct {
		name string
		task string
		want string
	}{
		{"normalizes and sorts", "Book a flight from SFO to Tokyo", "book flight sfo tokyo"},
		{"case and punctuation", "BOOK   a Flight!!!", "book flight"},
		{"duplicates collapse", "search search search", "search"},
		{"stopwords only", "the a an to", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Signature(tt.task))
		})
	}
}

func TestSimilarity(t *testing.T) {
	a := Signature("Book a flight from SFO to Tokyo")
	b := Signature("Book a flight from SFO to Osaka")

	assert.Equal(t, 1.0, Similarity(a, a))
	assert.InDelta(t, 0.6, Similarity(a, b), 0.001)
	assert.Equal(t, Similarity(a, b), Similarity(b, a))
	assert.Equal(t, 0.0, Similarity(a, Signature("Water the plants")))
	assert.Equal(t, 0.0, Similarity("", a))
}

func TestDiffSteps(t *testing.T) {
	base := []workflow.Step{
		{Type: workflow.StepNavigate, URL: "https://example.com"},
		{Type: workflow.StepTypeText, Selector: "#q", Value: "golang", Timeout: 5000},
	}

	t.Run("identical steps produce no diffs", func(t *testing.T) {
		assert.Empty(t, DiffSteps(base, base))
	})

	t.Run("field changes are reported per position", func(t *testing.T) {
		corrected := []workflow.Step{
			{Type: workflow.StepNavigate, URL: "https://example.org"},
			{Type: workflow.StepTypeText, Selector: "#q", Value: "go", Timeout: 10000},
		}
		diffs := DiffSteps(base, corrected)
		require.Len(t, diffs, 3)
		assert.Equal(t, FieldDiff{Position: 0, Field: "url", Old: "https://example.com", New: "https://example.org"}, diffs[0])
		assert.Equal(t, FieldDiff{Position: 1, Field: "value", Old: "golang", New: "go"}, diffs[1])
		assert.Equal(t, FieldDiff{Position: 1, Field: "timeout", Old: "5000", New: "10000"}, diffs[2])
	})

	t.Run("type change", func(t *testing.T) {
		corrected := []workflow.Step{
			{Type: workflow.StepNavigate, URL: "https://example.com"},
			{Type: workflow.StepClick, Selector: "#q", Value: "golang", Timeout: 5000},
		}
		diffs := DiffSteps(base, corrected)
		require.Len(t, diffs, 1)
		assert.Equal(t, "type", diffs[0].Field)
	})

	t.Run("removed step surfaces as step count", func(t *testing.T) {
		diffs := DiffSteps(base, base[:1])
		require.Len(t, diffs, 1)
		assert.Equal(t, FieldDiff{Position: 1, Field: "steps", Old: "2 steps", New: "1 steps"}, diffs[0])
	})

	t.Run("both empty", func(t *testing.T) {
		assert.Empty(t, DiffSteps(nil, nil))
	})
}

func TestDiffKey(t *testing.T) {
	assert.Equal(t, "none", DiffKey(nil))
	assert.Equal(t, "1.selector", DiffKey([]FieldDiff{{Position: 1, Field: "selector"}}))
	assert.Equal(t, "0.url|1.value", DiffKey([]FieldDiff{
		{Position: 0, Field: "url"},
		{Position: 1, Field: "value"},
	}))
}

func TestSummarizeDiffs(t *testing.T) {
	assert.Equal(t, "", summarizeDiffs(nil))
	assert.Equal(t, "the selector of step 2", summarizeDiffs([]FieldDiff{
		{Position: 1, Field: "selector"},
	}))
	assert.Equal(t, "the url of step 1 and the value of step 2", summarizeDiffs([]FieldDiff{
		{Position: 0, Field: "url"},
		{Position: 1, Field: "value"},
	}))
	assert.Equal(t, "the step count", summarizeDiffs([]FieldDiff{
		{Position: 2, Field: "steps"},
	}))
}
