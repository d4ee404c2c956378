package guard

import (
	"context"
	"time"
)

// AttemptStore は送信試行履歴の保存先を抽象化する。
// Allowは1キーに対する読み取り・剪定・追記を1回の呼び出しとして
// アトミックに実行しなければならない。
type AttemptStore interface {
	// Allow はキーの試行履歴からウィンドウ外のエントリを取り除き、
	// 残数がlimit未満なら現在時刻を記録してtrueを返す。
	// 上限到達時はfalseと、最古の試行が期限切れになるまでの秒数を返す。
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// Guard は送信元キーごとのスライディングウィンドウ型の送信制限を提供する。
// ミドルウェアのトークンバケット型レート制限とは独立した、
// 問い合わせフォーム専用の濫用防止機構。
type Guard struct {
	store  AttemptStore
	limit  int
	window time.Duration
}

// New はGuardを生成する。limitはウィンドウ内の許容試行回数、
// windowは観測期間。
func New(store AttemptStore, limit int, window time.Duration) *Guard {
	return &Guard{
		store:  store,
		limit:  limit,
		window: window,
	}
}

// Allow はキーに対する新しい試行を許可するか判定する。
// 拒否時は再試行可能になるまでの推定待ち時間を返す。
func (g *Guard) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	return g.store.Allow(ctx, key, g.limit, g.window)
}

// Limit は設定された許容試行回数を返す。
func (g *Guard) Limit() int {
	return g.limit
}

// Window は設定された観測期間を返す。
func (g *Guard) Window() time.Duration {
	return g.window
}
