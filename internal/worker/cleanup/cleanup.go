// Package cleanup は訪問者ハッシュの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超過したpage_view_visitorsの行を
// 日次バッチで削除する。日別カウンターは集計済みのため削除しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/folio/internal/repository"
)

// Job は保持期間を超過した訪問者ハッシュの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type Job struct {
	repo          repository.PageViewRepository
	logger        *slog.Logger
	RetentionDays int // 訪問者ハッシュの保持日数（デフォルト: 90）
}

// NewJob は新しいJobを生成する。デフォルトの保持日数は90日。
func NewJob(repo repository.PageViewRepository, logger *slog.Logger) *Job {
	return &Job{
		repo:          repo,
		logger:        logger,
		RetentionDays: 90,
	}
}

// Run は保持期間を超過した訪問者ハッシュを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	cutoff := time.Now().AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.repo.PruneVisitorsBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("訪問者ハッシュのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("訪問者ハッシュのクリーンアップに失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("訪問者ハッシュのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
