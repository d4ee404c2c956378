package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/folio/internal/model"
)

// fakePageViewRepo はPruneVisitorsBeforeの呼び出しを記録するテスト用実装。
type fakePageViewRepo struct {
	cutoff   time.Time
	pruned   int64
	pruneErr error
}

func (f *fakePageViewRepo) RecordView(context.Context, time.Time, string) error { return nil }
func (f *fakePageViewRepo) CountByDate(context.Context, time.Time) (int, error) { return 0, nil }
func (f *fakePageViewRepo) DailyCounts(context.Context, time.Time, int) ([]model.DailyViews, error) {
	return nil, nil
}
func (f *fakePageViewRepo) TotalViews(context.Context) (int, error)     { return 0, nil }
func (f *fakePageViewRepo) UniqueVisitors(context.Context) (int, error) { return 0, nil }

func (f *fakePageViewRepo) PruneVisitorsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.pruned, f.pruneErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// デフォルトの保持日数が90日であることを検証
func TestNewJob_DefaultRetention(t *testing.T) {
	job := NewJob(&fakePageViewRepo{}, testLogger())
	if job.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", job.RetentionDays)
	}
}

// 保持日数からカットオフが計算されることを検証
func TestJob_Run_ComputesCutoff(t *testing.T) {
	repo := &fakePageViewRepo{pruned: 7}
	job := NewJob(repo, testLogger())
	job.RetentionDays = 30

	before := time.Now().AddDate(0, 0, -30)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	after := time.Now().AddDate(0, 0, -30)

	if repo.cutoff.Before(before) || repo.cutoff.After(after) {
		t.Errorf("cutoff = %v, want about 30 days ago", repo.cutoff)
	}
}

// 削除対象ゼロでもエラーにならないことを検証
func TestJob_Run_IdempotentWhenNothingToDelete(t *testing.T) {
	repo := &fakePageViewRepo{pruned: 0}
	job := NewJob(repo, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}

// リポジトリのエラーが伝播することを検証
func TestJob_Run_PropagatesError(t *testing.T) {
	repo := &fakePageViewRepo{pruneErr: errors.New("db down")}
	job := NewJob(repo, testLogger())

	if err := job.Run(context.Background()); err == nil {
		t.Error("Run() should return error when prune fails")
	}
}
