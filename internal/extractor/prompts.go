package extractor

const coachSystemPrompt = `You are an experienced sales coach reviewing a recorded sales call. ` +
	`The transcript labels participants as Speaker 1, Speaker 2, and so on. ` +
	`First work out which speaker is the salesperson from context, then evaluate only the salesperson's performance. ` +
	`If the transcript arrives in numbered parts, treat them as one continuous conversation in order. ` +
	`Answer in plain text without markdown formatting.`

const strengthsTemplate = `Read the sales call transcript below and describe the salesperson's strengths. ` +
	`Point to concrete moments of the call that show each strength. Be specific and practical, not generic.

TRANSCRIPT:
{{TRANSCRIPT}}`

const weaknessesTemplate = `Read the sales call transcript below and describe the salesperson's weaknesses and missed opportunities. ` +
	`Point to concrete moments of the call. Be specific and practical.

The strengths already identified for this call are listed after the transcript. ` +
	`Do not reuse or contradict the moments already cited there; cover different ground.

TRANSCRIPT:
{{TRANSCRIPT}}

STRENGTHS ALREADY IDENTIFIED:
{{DEP}}`

const summaryTemplate = `Summarize the sales call transcript below in one short paragraph: ` +
	`who the participants are, what was discussed, what was agreed, and how the call ended.

TRANSCRIPT:
{{TRANSCRIPT}}`

const generalTipsTemplate = `Based on the sales call transcript below, give the salesperson general coaching tips ` +
	`to improve their overall selling technique. Keep each tip actionable.

TRANSCRIPT:
{{TRANSCRIPT}}`

const nextCallFocusTemplate = `Based on the sales call transcript below, state the single most important thing ` +
	`the salesperson should focus on in their next call with this prospect, and why.

TRANSCRIPT:
{{TRANSCRIPT}}`

const scoringTemplate = `Score the salesperson in the sales call transcript below on each criterion, 0 to 5. ` +
	`Use 0 only when the criterion does not apply to this call.

Criteria:
- Clarity and Fluency: speaks clearly, no rambling
- Tone and Control: confident, calm, steers the conversation
- Conversational Engagement: listens, asks follow-ups, keeps the prospect talking
- Needs Discovery Effectiveness: uncovers the prospect's real problems and goals
- Value Delivery and Fit: connects the offer to the discovered needs
- Objection Handling: addresses pushback without deflecting or conceding
- Meeting Structure and Control: agenda, pacing, time management
- Closing and Next Steps: asks for commitment, locks in a concrete next step

Reply with exactly one line per criterion in this format:
Clarity and Fluency: [score]/5
Tone and Control: [score]/5
Conversational Engagement: [score]/5
Needs Discovery Effectiveness: [score]/5
Value Delivery and Fit: [score]/5
Objection Handling: [score]/5
Meeting Structure and Control: [score]/5
Closing and Next Steps: [score]/5

TRANSCRIPT:
{{TRANSCRIPT}}`

// JustificationField follows the scoring call. Its prompt carries the
// scoring reply, not the transcript, to keep the call cheap.
var JustificationField = Field{
	Key:       "justifications",
	Label:     "Justifications",
	System:    coachSystemPrompt,
	DependsOn: KeyScoring,
	Template: `Below are the scores you gave the salesperson. For each criterion, justify the score ` +
		`in one sentence grounded in the call.

Reply with exactly one line per criterion in this format:
<criterion name>: <one-sentence justification>

SCORES:
{{DEP}}

TRANSCRIPT:
{{TRANSCRIPT}}`,
}

// ClassificationField identifies the call type before the main
// pipeline runs. The reply is normalized against the known label set.
var ClassificationField = Field{
	Key:    "call_type",
	Label:  "Call type",
	System: coachSystemPrompt,
	Template: `Classify the sales call transcript below as exactly one of these types:
- Cold Call: first unsolicited contact with the prospect
- Scheduling Call: short call whose goal is booking a longer meeting
- Discovery Meeting: exploring the prospect's needs and situation
- Closing Meeting: negotiating terms and asking for the sale
- Q&A Meeting: answering prospect questions about an offer already presented
- One Call Close: full cycle from introduction to close in a single call

Reply with only the type name.

TRANSCRIPT:
{{TRANSCRIPT}}`,
}
