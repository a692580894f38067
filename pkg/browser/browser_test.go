package browser

import (
	"strings"
	"testing"
)

func TestTruncateContent(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		maxLength int
		want      string
	}{
		{
			name:      "under limit unchanged",
			content:   "short",
			maxLength: 100,
			want:      "short",
		},
		{
			name:      "zero limit unchanged",
			content:   "anything at all",
			maxLength: 0,
			want:      "anything at all",
		},
		{
			name:      "over limit gains warning",
			content:   "0123456789",
			maxLength: 5,
			want:      "01234\n\n[Content truncated: 5 of 10 characters shown]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateContent(tt.content, tt.maxLength)
			if got != tt.want {
				t.Errorf("truncateContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArticleFromHTML(t *testing.T) {
	input := `<html>
		<head><title>Reading List Roundup</title></head>
		<body>
			<nav><a href="/home">Home</a><a href="/about">About</a></nav>
			<article>
				<h1>Reading List Roundup</h1>
				<p>The quick brown fox jumps over the lazy dog while the
				evening settles in across the valley. Readers gathered their
				notes and compared observations from the long week of testing
				and review, trading summaries over coffee until late.</p>
				<p>Every workflow starts with a single navigation and grows
				from there, one clicked element at a time. The team kept a
				careful log of which selectors held steady across releases
				and which ones drifted as the markup changed underneath.</p>
				<p>By the end of the month the collection of recorded runs
				told a clear story about which pages were stable and which
				needed another pass of selector work before automation could
				be trusted to run unattended overnight.</p>
			</article>
			<footer><p>Copyright notice</p></footer>
		</body>
	</html>`

	got, err := articleFromHTML(input, "https://example.com/roundup")
	if err != nil {
		t.Fatalf("articleFromHTML() error = %v", err)
	}

	if !strings.Contains(got, "Reading List Roundup") {
		t.Errorf("article missing title, got %q", got)
	}
	if !strings.Contains(got, "quick brown fox") {
		t.Errorf("article missing body content, got %q", got)
	}
	if strings.Contains(got, "<p>") || strings.Contains(got, "<article>") {
		t.Errorf("article contains raw HTML tags: %q", got)
	}
}

func TestArticleFromHTML_BadURL(t *testing.T) {
	_, err := articleFromHTML("<html><body></body></html>", "://not-a-url")
	if err == nil {
		t.Error("expected error for malformed page URL")
	}
}

func TestSessionValidation(t *testing.T) {
	s := &Session{}

	t.Run("wait requires selector or timeout", func(t *testing.T) {
		err := s.Wait(WaitOptions{})
		if err == nil || !strings.Contains(err.Error(), "selector or a positive timeout") {
			t.Errorf("Wait() error = %v, want selector/timeout requirement", err)
		}
	})

	t.Run("select requires label or value", func(t *testing.T) {
		_, err := s.SelectOption(SelectOptions{Selector: "#country"})
		if err == nil || !strings.Contains(err.Error(), "label or value") {
			t.Errorf("SelectOption() error = %v, want label/value requirement", err)
		}
	})

	t.Run("extract rejects unknown format", func(t *testing.T) {
		_, err := s.Extract(ExtractOptions{Format: "xml"})
		if err == nil || !strings.Contains(err.Error(), "unsupported format") {
			t.Errorf("Extract() error = %v, want unsupported format", err)
		}
	})

	t.Run("attribute extraction requires selector", func(t *testing.T) {
		_, err := s.Extract(ExtractOptions{Format: FormatAttribute})
		if err == nil || !strings.Contains(err.Error(), "selector is required") {
			t.Errorf("Extract() error = %v, want selector requirement", err)
		}
	})

	t.Run("attribute extraction requires attribute name", func(t *testing.T) {
		_, err := s.Extract(ExtractOptions{Format: FormatAttribute, Selector: "a"})
		if err == nil || !strings.Contains(err.Error(), "attribute name is required") {
			t.Errorf("Extract() error = %v, want attribute name requirement", err)
		}
	})
}

func TestSessionManagerLifecycle(t *testing.T) {
	m := NewSessionManager()

	if m.HasSessions() {
		t.Error("new manager should have no sessions")
	}
	if infos := m.ListSessions(); len(infos) != 0 {
		t.Errorf("ListSessions() = %d entries, want 0", len(infos))
	}

	_, err := m.StartSession("run-1", SessionOptions{})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("StartSession() before Initialize error = %v, want not initialized", err)
	}

	_, err = m.GetSession("missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("GetSession() error = %v, want not found", err)
	}

	if err := m.CloseSession("missing"); err == nil {
		t.Error("CloseSession() on unknown session should fail")
	}

	if err := m.CloseAll(); err != nil {
		t.Errorf("CloseAll() on empty manager error = %v", err)
	}
	if err := m.CleanupIdleSessions(); err != nil {
		t.Errorf("CleanupIdleSessions() on empty manager error = %v", err)
	}
	if err := m.Shutdown(); err != nil {
		t.Errorf("Shutdown() on uninitialized manager error = %v", err)
	}
}
