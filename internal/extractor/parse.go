package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"sales-insights-go/internal/types"
)

// NoJustification is the placeholder used when the model reply has no
// usable line for a criterion.
const NoJustification = "No justification provided."

// ScoreResult tags a parsed score with whether it was actually found.
// Defaulting (Found=false means 0) is the caller's decision, logged at
// the call site, never silent inside the parser.
type ScoreResult struct {
	Value int
	Found bool
}

// Criterion binds a rubric dimension key to the patterns that locate it
// in a model reply. Patterns tolerate label drift: "and" vs "&" vs "/",
// dropped suffix words, brackets around the score, a missing "/5".
type Criterion struct {
	Key     string
	Label   string
	scoreRe *regexp.Regexp
	labelRe *regexp.Regexp
}

func newCriterion(key, label, pattern string) Criterion {
	return Criterion{
		Key:     key,
		Label:   label,
		scoreRe: regexp.MustCompile(`(?i)` + pattern + `[^\d\n]*(\d+)\s*(?:/\s*5)?`),
		labelRe: regexp.MustCompile(`(?i)` + pattern),
	}
}

const sep = `\s*(?:and|&|/)?\s*`

// Criteria lists the 8 rubric dimensions in report order.
var Criteria = []Criterion{
	newCriterion("clarityFluency", "Clarity and Fluency", `clarity`+sep+`fluency`),
	newCriterion("toneControl", "Tone and Control", `tone`+sep+`control`),
	newCriterion("conversationalEngagement", "Conversational Engagement", `conversational\s+engagement`),
	newCriterion("needsDiscoveryEffectiveness", "Needs Discovery Effectiveness", `needs\s+discovery(?:\s+effectiveness)?`),
	newCriterion("valueDeliveryFit", "Value Delivery and Fit", `value\s+delivery(?:`+sep+`fit)?`),
	newCriterion("objectionHandlingSkill", "Objection Handling", `objection\s+handling(?:\s+skills?)?`),
	newCriterion("meetingStructureControl", "Meeting Structure and Control", `meeting\s+structure(?:`+sep+`control)?`),
	newCriterion("closingNextSteps", "Closing and Next Steps", `closing`+sep+`next\s+steps`),
}

// ParseScores extracts one tagged result per criterion from a scoring
// reply. Values outside 0..5 are treated as not found, never clamped.
func ParseScores(reply string) map[string]ScoreResult {
	out := make(map[string]ScoreResult, len(Criteria))
	for _, c := range Criteria {
		res := ScoreResult{}
		if m := c.scoreRe.FindStringSubmatch(reply); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v >= 0 && v <= 5 {
				res = ScoreResult{Value: v, Found: true}
			}
		}
		out[c.Key] = res
	}
	return out
}

// ParseJustifications pulls one justification line per criterion: the
// text after the label on its line, or the next non-empty line when the
// label stands alone. Missing criteria get the placeholder.
func ParseJustifications(reply string) map[string]string {
	lines := strings.Split(reply, "\n")
	out := make(map[string]string, len(Criteria))
	for _, c := range Criteria {
		out[c.Key] = NoJustification
		for i, line := range lines {
			loc := c.labelRe.FindStringIndex(line)
			if loc == nil {
				continue
			}
			rest := strings.TrimLeft(line[loc[1]:], " :-–")
			rest = strings.TrimSpace(rest)
			if rest == "" {
				for j := i + 1; j < len(lines); j++ {
					if next := strings.TrimSpace(lines[j]); next != "" {
						rest = next
						break
					}
				}
			}
			if rest != "" {
				out[c.Key] = rest
			}
			break
		}
	}
	return out
}

// ScoreSetFrom maps tagged results onto the output struct, defaulting
// unfound criteria to 0.
func ScoreSetFrom(results map[string]ScoreResult) types.ScoreSet {
	get := func(key string) int { return results[key].Value }
	return types.ScoreSet{
		ClarityFluency:              get("clarityFluency"),
		ToneControl:                 get("toneControl"),
		ConversationalEngagement:    get("conversationalEngagement"),
		NeedsDiscoveryEffectiveness: get("needsDiscoveryEffectiveness"),
		ValueDeliveryFit:            get("valueDeliveryFit"),
		ObjectionHandlingSkill:      get("objectionHandlingSkill"),
		MeetingStructureControl:     get("meetingStructureControl"),
		ClosingNextSteps:            get("closingNextSteps"),
	}
}

// JustificationsFrom maps parsed lines onto the output struct.
func JustificationsFrom(parsed map[string]string) types.Justifications {
	get := func(key string) string {
		if v, ok := parsed[key]; ok && v != "" {
			return v
		}
		return NoJustification
	}
	return types.Justifications{
		ClarityFluency:              get("clarityFluency"),
		ToneControl:                 get("toneControl"),
		ConversationalEngagement:    get("conversationalEngagement"),
		NeedsDiscoveryEffectiveness: get("needsDiscoveryEffectiveness"),
		ValueDeliveryFit:            get("valueDeliveryFit"),
		ObjectionHandlingSkill:      get("objectionHandlingSkill"),
		MeetingStructureControl:     get("meetingStructureControl"),
		ClosingNextSteps:            get("closingNextSteps"),
	}
}

// NormalizeCallType maps a classification reply onto the known label
// set. Exact (case-insensitive) matches win; otherwise keywords decide;
// otherwise the default is Discovery Meeting.
func NormalizeCallType(reply string) string {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.Trim(cleaned, `"'.`)
	lower := strings.ToLower(cleaned)

	for _, label := range types.CallTypes {
		if strings.EqualFold(cleaned, label) {
			return label
		}
	}
	switch {
	case strings.Contains(lower, "one call"):
		return types.CallTypeOneCall
	case strings.Contains(lower, "cold"):
		return types.CallTypeCold
	case strings.Contains(lower, "schedul"):
		return types.CallTypeScheduling
	case strings.Contains(lower, "clos"):
		return types.CallTypeClosing
	case strings.Contains(lower, "q&a"), strings.Contains(lower, "question"):
		return types.CallTypeQA
	default:
		return types.CallTypeDiscovery
	}
}
