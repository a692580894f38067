package feedback

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Priority of a suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

func (p Priority) raise() Priority {
	if p == PriorityLow {
		return PriorityMedium
	}
	return PriorityHigh
}

// Suggestion is advice derived from past feedback on similar tasks.
type Suggestion struct {
	Message   string   `json:"message"`
	Priority  Priority `json:"priority"`
	Frequency int      `json:"frequency"`

	similarity float64
}

// GetSuggestions returns suggestions from records whose task signature is
// similar enough to the given task, ordered by priority then frequency.
// An empty history or an unmatched task yields an empty list, never an
// error.
func (s *Store) GetSuggestions(ctx context.Context, task, taskURL string) ([]Suggestion, error) {
	suggestions := []Suggestion{}
	if strings.TrimSpace(task) == "" {
		return suggestions, nil
	}

	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}

	signature := Signature(task)
	host := urlHost(taskURL)

	for _, record := range records {
		similarity := Similarity(signature, record.TaskSignature)
		if similarity < DefaultSimilarityThreshold {
			continue
		}
		hostMatch := host != "" && host == urlHost(record.URL)
		suggestions = append(suggestions, Suggestion{
			Message:    buildMessage(record, hostMatch),
			Priority:   priorityFor(record.Frequency, hostMatch),
			Frequency:  record.Frequency,
			similarity: similarity,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Priority.rank() != suggestions[j].Priority.rank() {
			return suggestions[i].Priority.rank() > suggestions[j].Priority.rank()
		}
		if suggestions[i].Frequency != suggestions[j].Frequency {
			return suggestions[i].Frequency > suggestions[j].Frequency
		}
		return suggestions[i].similarity > suggestions[j].similarity
	})
	return suggestions, nil
}

// priorityFor derives a priority from how often the record recurred. A
// same-site match raises it one level.
func priorityFor(frequency int, hostMatch bool) Priority {
	var p Priority
	switch {
	case frequency >= 3:
		p = PriorityHigh
	case frequency == 2:
		p = PriorityMedium
	default:
		p = PriorityLow
	}
	if hostMatch {
		p = p.raise()
	}
	return p
}

func buildMessage(record *LearningRecord, hostMatch bool) string {
	var b strings.Builder
	switch record.Type {
	case FeedbackCorrection:
		summary := summarizeDiffs(record.Diffs)
		if summary == "" {
			fmt.Fprintf(&b, "A similar task (%q) received feedback before.", record.OriginalTask)
		} else {
			fmt.Fprintf(&b, "A similar task (%q) needed %s corrected %s. Review those fields before running.",
				record.OriginalTask, summary, times(record.Frequency))
		}
	case FeedbackSuccess:
		fmt.Fprintf(&b, "A similar task (%q) ran successfully %s with this step shape.",
			record.OriginalTask, times(record.Frequency))
	case FeedbackFailure:
		fmt.Fprintf(&b, "A similar task (%q) failed %s. Expect manual adjustments.",
			record.OriginalTask, times(record.Frequency))
	}
	if record.Notes != "" {
		fmt.Fprintf(&b, " Note from the submitter: %s", record.Notes)
	}
	if hostMatch {
		b.WriteString(" The past feedback was for this same site.")
	}
	return b.String()
}

func times(n int) string {
	if n == 1 {
		return "once"
	}
	return fmt.Sprintf("%d times", n)
}

func urlHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
