package chunker

import (
	"fmt"
	"strings"

	"sales-insights-go/internal/types"
)

// Split cuts text into chunks of at most maxLen bytes, never breaking a
// line in half. Lines are accumulated greedily; a single line longer
// than maxLen becomes its own oversized chunk rather than being cut.
// Start/End are byte offsets into the input, so
// text[chunk.Start:chunk.End] == chunk.Text.
func Split(text string, maxLen int) []types.Chunk {
	if text == "" {
		return nil
	}
	if maxLen <= 0 || len(text) <= maxLen {
		return []types.Chunk{{Index: 0, Text: text, Start: 0, End: len(text)}}
	}

	var chunks []types.Chunk
	start := 0
	cur := 0 // end of the chunk being accumulated

	flush := func(end int) {
		if end <= start {
			return
		}
		chunks = append(chunks, types.Chunk{
			Index: len(chunks),
			Text:  text[start:end],
			Start: start,
			End:   end,
		})
		start = end
	}

	for pos := 0; pos < len(text); {
		nl := strings.IndexByte(text[pos:], '\n')
		var lineEnd int
		if nl < 0 {
			lineEnd = len(text)
		} else {
			lineEnd = pos + nl + 1 // keep the newline with its line
		}

		if lineEnd-start > maxLen && cur > start {
			flush(cur)
		}
		cur = lineEnd
		pos = lineEnd
	}
	flush(cur)

	return chunks
}

// Join renders chunks as one prompt-ready document, each part preceded
// by a numbered marker line so the model can reason about order.
func Join(chunks []types.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- PART %d ---\n", c.Index+1)
		b.WriteString(strings.TrimRight(c.Text, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// Reassemble restores the original text from its chunks. Split then
// Reassemble is the identity.
func Reassemble(chunks []types.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}
