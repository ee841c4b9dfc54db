package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Normalize cleans a raw transcript into the canonical form every
// downstream stage works on. It is pure and idempotent: running it on
// its own output changes nothing.
//
// Passes, in order: line endings, timestamp zero-padding, speaker-label
// canonicalization, filler-word removal, stutter collapse, punctuation
// spacing, whitespace collapse.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")

	text = padTimestamps(text)
	text = canonicalizeSpeakers(text)
	text = removeFillers(text)
	text = collapseStutters(text)
	text = fixPunctuationSpacing(text)
	text = collapseWhitespace(text)

	return text
}

var timestampRe = regexp.MustCompile(`\[(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?\]`)

// padTimestamps rewrites bracketed timestamps as [HH:MM:SS]. A two-part
// stamp is read as minutes:seconds.
func padTimestamps(text string) string {
	return timestampRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := timestampRe.FindStringSubmatch(m)
		h, min, sec := 0, 0, 0
		if parts[3] != "" {
			h, _ = strconv.Atoi(parts[1])
			min, _ = strconv.Atoi(parts[2])
			sec, _ = strconv.Atoi(parts[3])
		} else {
			min, _ = strconv.Atoi(parts[1])
			sec, _ = strconv.Atoi(parts[2])
		}
		return fmt.Sprintf("[%02d:%02d:%02d]", h, min, sec)
	})
}

var (
	speakerNumRe    = regexp.MustCompile(`(?i)\bspeaker\s*(\d+)\s*:`)
	speakerLetterRe = regexp.MustCompile(`(?i)\bspeaker\s*([A-Z])\s*:`)
	speakerBreakRe  = regexp.MustCompile(`(\S)[ ]+(Speaker \d+:)`)
)

// canonicalizeSpeakers rewrites every speaker tag as "Speaker N:" and
// makes sure each turn starts on its own line. Letter tags map A=1, B=2.
func canonicalizeSpeakers(text string) string {
	text = speakerNumRe.ReplaceAllString(text, "Speaker $1:")
	text = speakerLetterRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := speakerLetterRe.FindStringSubmatch(m)
		letter := strings.ToUpper(parts[1])
		return fmt.Sprintf("Speaker %d:", int(letter[0]-'A')+1)
	})
	return speakerBreakRe.ReplaceAllString(text, "$1\n$2")
}

var fillerRe = regexp.MustCompile(`(?i)(^|[\s(])(?:uh|um|uhm|erm|hmm|mmm)([\s,.;:!?)]|$)`)

// removeFillers drops whole-word hesitation sounds. Words that merely
// contain a filler (e.g. "umbrella", "summer") are untouched.
func removeFillers(text string) string {
	// Repeat until fixed point: adjacent fillers share boundary chars,
	// so one pass can leave a survivor between two removals.
	for {
		next := fillerRe.ReplaceAllString(text, "$1$2")
		if next == text {
			return text
		}
		text = next
	}
}

var trailingPunct = ",.;:!?"

// collapseStutters reduces a run of three or more identical consecutive
// words to a single word. Doubles stay: "very very good" reads as
// emphasis, "I I I think" reads as a stutter. Comparison ignores case
// and trailing punctuation; the last token of a run keeps its form.
func collapseStutters(text string) string {
	lines := strings.Split(text, "\n")
	for li, line := range lines {
		tokens := strings.Fields(line)
		if len(tokens) < 3 {
			continue
		}
		key := func(tok string) string {
			return strings.ToLower(strings.TrimRight(tok, trailingPunct))
		}
		out := make([]string, 0, len(tokens))
		for i := 0; i < len(tokens); {
			j := i + 1
			for j < len(tokens) && key(tokens[j]) == key(tokens[i]) && key(tokens[i]) != "" {
				j++
			}
			if j-i >= 3 {
				out = append(out, tokens[j-1])
			} else {
				out = append(out, tokens[i:j]...)
			}
			i = j
		}
		lines[li] = strings.Join(out, " ")
	}
	return strings.Join(lines, "\n")
}

var (
	spaceBeforePunctRe = regexp.MustCompile(`[ ]+([,.;:!?])`)
	repeatedCommaRe    = regexp.MustCompile(`([,.;:!?])(?:[ ]*,)+`)
	missingSpaceRe     = regexp.MustCompile(`([,.;:!?])(\p{L})`)
)

// fixPunctuationSpacing removes space before punctuation and inserts a
// space after it when a letter follows. The letter requirement keeps
// timestamps like [00:01:02] intact.
func fixPunctuationSpacing(text string) string {
	text = spaceBeforePunctRe.ReplaceAllString(text, "$1")
	text = repeatedCommaRe.ReplaceAllString(text, "$1")
	return missingSpaceRe.ReplaceAllString(text, "$1 $2")
}

var (
	multiSpaceRe   = regexp.MustCompile(`[ ]{2,}`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

func collapseWhitespace(text string) string {
	text = multiSpaceRe.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
