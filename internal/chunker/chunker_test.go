package chunker

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	t.Run("empty text yields no chunks", func(t *testing.T) {
		if got := Split("", 100); got != nil {
			t.Errorf("Split(\"\") = %v, want nil", got)
		}
	})

	t.Run("short text stays whole", func(t *testing.T) {
		chunks := Split("one line\nanother line\n", 1000)
		if len(chunks) != 1 {
			t.Fatalf("len = %d, want 1", len(chunks))
		}
		if chunks[0].Text != "one line\nanother line\n" {
			t.Errorf("Text = %q", chunks[0].Text)
		}
	})

	t.Run("never cuts a line in half", func(t *testing.T) {
		text := strings.Repeat("0123456789\n", 50) // 550 bytes, 11 per line
		chunks := Split(text, 100)
		for _, c := range chunks {
			if len(c.Text) > 100 {
				t.Errorf("chunk %d length %d exceeds limit", c.Index, len(c.Text))
			}
			for _, line := range strings.Split(strings.TrimRight(c.Text, "\n"), "\n") {
				if line != "0123456789" {
					t.Errorf("chunk %d contains split line %q", c.Index, line)
				}
			}
		}
	})

	t.Run("oversized single line becomes its own chunk", func(t *testing.T) {
		long := strings.Repeat("x", 250)
		text := "short\n" + long + "\nshort again\n"
		chunks := Split(text, 100)
		found := false
		for _, c := range chunks {
			if strings.Contains(c.Text, long) {
				found = true
				if strings.Contains(c.Text, "short") {
					t.Errorf("oversized line shares a chunk: %q", c.Text[:20])
				}
			}
		}
		if !found {
			t.Error("oversized line missing from every chunk")
		}
	})

	t.Run("offsets index the source", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma\n", 40)
		for _, c := range Split(text, 128) {
			if text[c.Start:c.End] != c.Text {
				t.Errorf("chunk %d offsets [%d:%d] do not match its text", c.Index, c.Start, c.End)
			}
		}
	})

	t.Run("three hundred thousand chars at hundred thousand limit", func(t *testing.T) {
		text := strings.Repeat(strings.Repeat("a", 99)+"\n", 3000) // 300000 bytes
		chunks := Split(text, 100000)
		if len(chunks) != 3 {
			t.Fatalf("len = %d, want 3", len(chunks))
		}
		for i, c := range chunks {
			if c.Index != i {
				t.Errorf("chunk %d has Index %d", i, c.Index)
			}
		}
	})
}

func TestReassembleRoundTrip(t *testing.T) {
	texts := []string{
		"single line no newline",
		strings.Repeat("line of call transcript text\n", 500),
		"first\n" + strings.Repeat("y", 5000) + "\nlast\n",
	}
	for _, text := range texts {
		if got := Reassemble(Split(text, 300)); got != text {
			t.Errorf("round trip changed text: len %d -> %d", len(text), len(got))
		}
	}
}

func TestJoin(t *testing.T) {
	chunks := Split("part one line\npart two line\n", 14)
	joined := Join(chunks)
	if !strings.Contains(joined, "--- PART 1 ---") || !strings.Contains(joined, "--- PART 2 ---") {
		t.Errorf("markers missing:\n%s", joined)
	}
	if !strings.Contains(joined, "part one line") || !strings.Contains(joined, "part two line") {
		t.Errorf("content missing:\n%s", joined)
	}
	if strings.Index(joined, "PART 1") > strings.Index(joined, "PART 2") {
		t.Error("parts out of order")
	}
}
