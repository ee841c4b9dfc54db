package extractor

import "strings"

// State tracks one field extraction through its lifetime. Failures are
// soft: a failed field keeps its zero value and the run continues.
type State string

const (
	StatePending    State = "PENDING"
	StateInFlight   State = "IN_FLIGHT"
	StateSucceeded  State = "SUCCEEDED"
	StateFailedSoft State = "FAILED_SOFT"
)

// Field describes one report section the pipeline extracts with a
// dedicated completion call.
type Field struct {
	Key       string
	Label     string
	System    string
	Template  string // {{TRANSCRIPT}} plus one {{DEP}} slot when DependsOn is set
	DependsOn string // key of an earlier field whose output feeds this prompt
}

// Field keys, in extraction order.
const (
	KeyStrengths     = "strengths"
	KeyWeaknesses    = "weaknesses"
	KeySummary       = "summary"
	KeyGeneralTips   = "general_tips"
	KeyNextCallFocus = "next_call_focus"
	KeyScoring       = "scoring"
)

// Pipeline is the fixed, ordered field registry. Weaknesses depends on
// strengths so the model does not recycle the same call moments.
var Pipeline = []Field{
	{
		Key:      KeyStrengths,
		Label:    "Strengths",
		System:   coachSystemPrompt,
		Template: strengthsTemplate,
	},
	{
		Key:       KeyWeaknesses,
		Label:     "Weaknesses",
		System:    coachSystemPrompt,
		Template:  weaknessesTemplate,
		DependsOn: KeyStrengths,
	},
	{
		Key:      KeySummary,
		Label:    "Summary",
		System:   coachSystemPrompt,
		Template: summaryTemplate,
	},
	{
		Key:      KeyGeneralTips,
		Label:    "General tips",
		System:   coachSystemPrompt,
		Template: generalTipsTemplate,
	},
	{
		Key:      KeyNextCallFocus,
		Label:    "Next call focus",
		System:   coachSystemPrompt,
		Template: nextCallFocusTemplate,
	},
	{
		Key:      KeyScoring,
		Label:    "Scoring",
		System:   coachSystemPrompt,
		Template: scoringTemplate,
	},
}

// BuildPrompt fills the field template. dep is the output of the field
// named by DependsOn; it is ignored when the field has no dependency.
func (f Field) BuildPrompt(transcript, dep string) string {
	prompt := strings.ReplaceAll(f.Template, "{{TRANSCRIPT}}", transcript)
	if f.DependsOn != "" {
		prompt = strings.ReplaceAll(prompt, "{{DEP}}", dep)
	}
	return prompt
}

// Extraction is the record of one field's attempt.
type Extraction struct {
	Field      Field
	State      State
	Output     string
	TokensUsed int
	Err        error
}
