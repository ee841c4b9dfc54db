package store

import (
	"context"
	"time"

	"sales-insights-go/internal/types"
)

// AnalysisRecord is one persisted analysis. The full report lives in
// the Analysis JSON column; the columns the queries filter and sort on
// (user, hash, type, score) are lifted out.
type AnalysisRecord struct {
	ID              string
	UserID          string
	Title           string
	CallType        string
	TotalScore      int
	ContentHash     string
	TokensUsed      int
	TranscriptChars int
	Analysis        types.AnalysisResult
	CreatedAt       time.Time
}

// Store is the persistence contract. FindByHash returns (nil, nil)
// when no record exists; absence is not an error.
type Store interface {
	Insert(ctx context.Context, rec *AnalysisRecord) (string, error)
	FindByHash(ctx context.Context, userID, contentHash string) (*AnalysisRecord, error)
	ListByUser(ctx context.Context, userID string) ([]AnalysisRecord, error)
	Close() error
}
