package dedup

import (
	"context"
	"errors"
	"testing"

	"sales-insights-go/internal/store"
)

type fakeStore struct {
	record *store.AnalysisRecord
	err    error
	gotKey [2]string
}

func (f *fakeStore) Insert(ctx context.Context, rec *store.AnalysisRecord) (string, error) {
	return "", nil
}

func (f *fakeStore) FindByHash(ctx context.Context, userID, hash string) (*store.AnalysisRecord, error) {
	f.gotKey = [2]string{userID, hash}
	return f.record, f.err
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string) ([]store.AnalysisRecord, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func TestFindExisting(t *testing.T) {
	t.Run("hit returns the prior record", func(t *testing.T) {
		want := &store.AnalysisRecord{ID: "abc", UserID: "u1", ContentHash: "h1"}
		gate := NewGate(&fakeStore{record: want}, nil)
		got := gate.FindExisting(context.Background(), "u1", "h1")
		if got != want {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("miss returns nil", func(t *testing.T) {
		fs := &fakeStore{}
		gate := NewGate(fs, nil)
		if got := gate.FindExisting(context.Background(), "u2", "h2"); got != nil {
			t.Errorf("got %+v, want nil", got)
		}
		if fs.gotKey != [2]string{"u2", "h2"} {
			t.Errorf("queried key = %v", fs.gotKey)
		}
	})

	t.Run("store failure is treated as miss", func(t *testing.T) {
		gate := NewGate(&fakeStore{err: errors.New("db down")}, nil)
		if got := gate.FindExisting(context.Background(), "u3", "h3"); got != nil {
			t.Errorf("got %+v, want nil on error", got)
		}
	})
}
