package assembler

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"sales-insights-go/internal/extractor"
	"sales-insights-go/internal/types"
)

// ContentHash fingerprints a normalized transcript. Equal normalized
// text always hashes equal, which is what the duplicate gate keys on.
func ContentHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Finalize stamps the run metadata onto a pipeline result and enforces
// the output contract: total equals the score sum, no empty call type,
// no empty justification, never a nil result.
func Finalize(res *types.AnalysisResult, normalized string, elapsed time.Duration) *types.AnalysisResult {
	if res == nil {
		res = &types.AnalysisResult{}
	}
	res.ContentHash = ContentHash(normalized)
	res.ProcessingTimeMs = elapsed.Milliseconds()
	res.TotalScore = res.Scores.Total()
	if res.CallType == "" {
		res.CallType = types.CallTypeDiscovery
	}
	fillJustifications(&res.Justifications)
	return res
}

func fillJustifications(j *types.Justifications) {
	fields := []*string{
		&j.ClarityFluency,
		&j.ToneControl,
		&j.ConversationalEngagement,
		&j.NeedsDiscoveryEffectiveness,
		&j.ValueDeliveryFit,
		&j.ObjectionHandlingSkill,
		&j.MeetingStructureControl,
		&j.ClosingNextSteps,
	}
	for _, f := range fields {
		if *f == "" {
			*f = extractor.NoJustification
		}
	}
}
