package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/folio/internal/model"
)

// PostgresPageViewRepo はPostgreSQLを使用したページビュー統計リポジトリ。
type PostgresPageViewRepo struct {
	db *sql.DB
}

// NewPostgresPageViewRepo はPostgresPageViewRepoを生成する。
func NewPostgresPageViewRepo(db *sql.DB) *PostgresPageViewRepo {
	return &PostgresPageViewRepo{db: db}
}

// RecordView は指定日のカウンターを加算し、訪問者ハッシュを記録する。
// 同一ハッシュの重複はON CONFLICT DO NOTHINGで無視する。
func (r *PostgresPageViewRepo) RecordView(ctx context.Context, date time.Time, visitorHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	day := truncateDay(date)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO page_views (view_date, view_count) VALUES ($1, 1)
		 ON CONFLICT (view_date) DO UPDATE SET view_count = page_views.view_count + 1`,
		day,
	); err != nil {
		return fmt.Errorf("failed to increment page views: %w", err)
	}

	if visitorHash != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_view_visitors (view_date, visitor_hash) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			day, visitorHash,
		); err != nil {
			return fmt.Errorf("failed to record visitor: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page view: %w", err)
	}

	return nil
}

// CountByDate は指定日のビュー数を返す。レコードがない場合は0を返す。
func (r *PostgresPageViewRepo) CountByDate(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT view_count FROM page_views WHERE view_date = $1`,
		truncateDay(date),
	).Scan(&count)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count views by date: %w", err)
	}

	return count, nil
}

// DailyCounts はendまでのdays日分の日別ビュー数を古い順で返す。
// レコードのない日は0件として埋める。
func (r *PostgresPageViewRepo) DailyCounts(ctx context.Context, end time.Time, days int) ([]model.DailyViews, error) {
	endDay := truncateDay(end)
	start := endDay.AddDate(0, 0, -(days - 1))

	rows, err := r.db.QueryContext(ctx,
		`SELECT view_date, view_count FROM page_views
		 WHERE view_date >= $1 AND view_date <= $2
		 ORDER BY view_date`,
		start, endDay,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily views: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var d time.Time
		var c int
		if err := rows.Scan(&d, &c); err != nil {
			return nil, fmt.Errorf("failed to scan daily views: %w", err)
		}
		counts[d.Format("2006-01-02")] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily views: %w", err)
	}

	result := make([]model.DailyViews, 0, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		result = append(result, model.DailyViews{Date: key, Views: counts[key]})
	}

	return result, nil
}

// TotalViews は全期間の合計ビュー数を返す。
func (r *PostgresPageViewRepo) TotalViews(ctx context.Context) (int, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT SUM(view_count) FROM page_views`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count total views: %w", err)
	}

	return int(total.Int64), nil
}

// UniqueVisitors は全期間のユニーク訪問者数を返す。
func (r *PostgresPageViewRepo) UniqueVisitors(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT visitor_hash) FROM page_view_visitors`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unique visitors: %w", err)
	}

	return count, nil
}

// PruneVisitorsBefore はcutoffより古い訪問者ハッシュを削除し、削除件数を返す。
func (r *PostgresPageViewRepo) PruneVisitorsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM page_view_visitors WHERE view_date < $1`,
		truncateDay(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune visitors: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check pruned rows: %w", err)
	}

	return affected, nil
}

// truncateDay はUTCの日単位に切り詰める。
func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// compile-time interface check
var _ PageViewRepository = (*PostgresPageViewRepo)(nil)
