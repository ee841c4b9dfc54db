package types

// Utterance is one speaker turn as returned by the transcription provider.
type Utterance struct {
	Speaker string `json:"speaker"`
	StartMs int64  `json:"start"`
	Text    string `json:"text"`
}

// Transcript is the raw speaker-tagged output of a transcription job.
// Utterances are time-ordered; Text is the formatted line-per-turn form.
type Transcript struct {
	Text       string      `json:"text"`
	Utterances []Utterance `json:"utterances,omitempty"`
}

// Chunk is a contiguous slice of transcript text. Start/End are byte
// offsets into the source text; chunks never cut a line in half.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ScoreSet holds the 8 rubric dimensions, each 0-5. Zero means the
// dimension was not found in the model reply, matching the source rubric's
// "not applicable" overload.
type ScoreSet struct {
	ClarityFluency              int `json:"clarityFluency"`
	ToneControl                 int `json:"toneControl"`
	ConversationalEngagement    int `json:"conversationalEngagement"`
	NeedsDiscoveryEffectiveness int `json:"needsDiscoveryEffectiveness"`
	ValueDeliveryFit            int `json:"valueDeliveryFit"`
	ObjectionHandlingSkill      int `json:"objectionHandlingSkill"`
	MeetingStructureControl     int `json:"meetingStructureControl"`
	ClosingNextSteps            int `json:"closingNextSteps"`
}

// Total sums the 8 dimensions. This is the only source of truth for the
// overall score; model-stated totals are never trusted.
func (s ScoreSet) Total() int {
	return s.ClarityFluency +
		s.ToneControl +
		s.ConversationalEngagement +
		s.NeedsDiscoveryEffectiveness +
		s.ValueDeliveryFit +
		s.ObjectionHandlingSkill +
		s.MeetingStructureControl +
		s.ClosingNextSteps
}

// Justifications carries one free-text explanation per rubric dimension.
type Justifications struct {
	ClarityFluency              string `json:"clarityFluency"`
	ToneControl                 string `json:"toneControl"`
	ConversationalEngagement    string `json:"conversationalEngagement"`
	NeedsDiscoveryEffectiveness string `json:"needsDiscoveryEffectiveness"`
	ValueDeliveryFit            string `json:"valueDeliveryFit"`
	ObjectionHandlingSkill      string `json:"objectionHandlingSkill"`
	MeetingStructureControl     string `json:"meetingStructureControl"`
	ClosingNextSteps            string `json:"closingNextSteps"`
}

// AnalysisResult is the canonical report produced by every strategy
// (single-pass, chunked, windowed). Every field defaults to its zero
// value rather than null so consumers never branch on absence.
type AnalysisResult struct {
	CallType         string         `json:"callType"`
	TotalScore       int            `json:"totalScore"`
	Strengths        string         `json:"strengths"`
	Weaknesses       string         `json:"weaknesses"`
	Summary          string         `json:"summary"`
	GeneralTips      string         `json:"generalTips"`
	NextCallFocus    string         `json:"nextCallFocus"`
	Scores           ScoreSet       `json:"scores"`
	Justifications   Justifications `json:"justifications"`
	TokensUsed       int            `json:"tokensUsed"`
	ContentHash      string         `json:"contentHash"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// Known call-type labels, mirroring the classifier's category set.
const (
	CallTypeCold       = "Cold Call"
	CallTypeScheduling = "Scheduling Call"
	CallTypeDiscovery  = "Discovery Meeting"
	CallTypeClosing    = "Closing Meeting"
	CallTypeQA         = "Q&A Meeting"
	CallTypeOneCall    = "One Call Close"
)

// CallTypes lists the valid labels in classifier order.
var CallTypes = []string{
	CallTypeCold,
	CallTypeScheduling,
	CallTypeDiscovery,
	CallTypeClosing,
	CallTypeQA,
	CallTypeOneCall,
}
