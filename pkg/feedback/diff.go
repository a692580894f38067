package feedback

import (
	"fmt"
	"strings"

	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

// FieldDiff is one field-level difference between a generated step and its
// corrected counterpart at the same position.
type FieldDiff struct {
	Position int    `json:"position"`
	Field    string `json:"field"`
	Old      string `json:"old"`
	New      string `json:"new"`
}

// DiffSteps compares generated and corrected steps position by position.
// A length mismatch surfaces as a single "steps" diff for the added or
// removed tail.
func DiffSteps(generated, corrected []workflow.Step) []FieldDiff {
	var diffs []FieldDiff
	common := len(generated)
	if len(corrected) < common {
		common = len(corrected)
	}
	for i := 0; i < common; i++ {
		diffs = append(diffs, diffStep(i, generated[i], corrected[i])...)
	}
	if len(generated) != len(corrected) {
		diffs = append(diffs, FieldDiff{
			Position: common,
			Field:    "steps",
			Old:      fmt.Sprintf("%d steps", len(generated)),
			New:      fmt.Sprintf("%d steps", len(corrected)),
		})
	}
	return diffs
}

func diffStep(position int, generated, corrected workflow.Step) []FieldDiff {
	var diffs []FieldDiff
	add := func(field, oldVal, newVal string) {
		diffs = append(diffs, FieldDiff{Position: position, Field: field, Old: oldVal, New: newVal})
	}
	if generated.Type != corrected.Type {
		add("type", string(generated.Type), string(corrected.Type))
	}
	if generated.URL != corrected.URL {
		add("url", generated.URL, corrected.URL)
	}
	if generated.Selector != corrected.Selector {
		add("selector", generated.Selector, corrected.Selector)
	}
	if generated.Value != corrected.Value {
		add("value", generated.Value, corrected.Value)
	}
	if generated.Timeout != corrected.Timeout {
		add("timeout", fmt.Sprintf("%g", generated.Timeout), fmt.Sprintf("%g", corrected.Timeout))
	}
	if generated.Description != corrected.Description {
		add("description", generated.Description, corrected.Description)
	}
	return diffs
}

// DiffKey collapses a diff list into its changed-field shape: positions and
// fields without the values. Records sharing a key describe the same kind
// of correction, so repeats increment frequency instead of piling up rows.
func DiffKey(diffs []FieldDiff) string {
	if len(diffs) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(diffs))
	for _, d := range diffs {
		parts = append(parts, fmt.Sprintf("%d.%s", d.Position, d.Field))
	}
	return strings.Join(parts, "|")
}

// summarizeDiffs renders a diff list as a human-readable phrase, e.g.
// "the selector of step 2 and the value of step 3".
func summarizeDiffs(diffs []FieldDiff) string {
	if len(diffs) == 0 {
		return ""
	}
	phrases := make([]string, 0, len(diffs))
	for _, d := range diffs {
		if d.Field == "steps" {
			phrases = append(phrases, "the step count")
			continue
		}
		phrases = append(phrases, fmt.Sprintf("the %s of step %d", d.Field, d.Position+1))
	}
	if len(phrases) == 1 {
		return phrases[0]
	}
	return strings.Join(phrases[:len(phrases)-1], ", ") + " and " + phrases[len(phrases)-1]
}
