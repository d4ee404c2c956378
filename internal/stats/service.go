// Package stats はページビュー統計の記録と集計を提供する。
package stats

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/folio/internal/model"
	"github.com/hitoshi/folio/internal/repository"
)

// summaryDays はサマリーに含める日別統計の日数。
const summaryDays = 7

// Service はページビュー統計のビジネスロジックを提供する。
// 訪問者はIPアドレスそのものではなくSHA-256ハッシュとして数える。
type Service struct {
	repo repository.PageViewRepository
	now  func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.PageViewRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Record は1ページビューを記録する。記録失敗はリクエスト処理を
// 妨げないよう、エラーはログに残すだけで返さない。
func (s *Service) Record(ctx context.Context, ip string) {
	if err := s.repo.RecordView(ctx, s.now(), VisitorHash(ip)); err != nil {
		slog.Warn("failed to record page view", slog.String("error", err.Error()))
	}
}

// Summary は統計サマリーを集計する。
func (s *Service) Summary(ctx context.Context) (*model.StatsSummary, error) {
	now := s.now()

	total, err := s.repo.TotalViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load total views: %w", err)
	}

	unique, err := s.repo.UniqueVisitors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load unique visitors: %w", err)
	}

	today, err := s.repo.CountByDate(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load today views: %w", err)
	}

	last7, err := s.repo.DailyCounts(ctx, now, summaryDays)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily views: %w", err)
	}

	return &model.StatsSummary{
		TotalViews:     total,
		UniqueVisitors: unique,
		TodayViews:     today,
		Last7Days:      last7,
	}, nil
}

// Prune はretentionDaysを超えて古い訪問者ハッシュを削除する。
func (s *Service) Prune(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return s.repo.PruneVisitorsBefore(ctx, cutoff)
}

// VisitorHash はIPアドレスを不可逆な訪問者識別子へ変換する。
// 空IPは空ハッシュとして扱い、ユニーク訪問者には数えない。
func VisitorHash(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
