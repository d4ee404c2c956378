package guard

import (
	"context"
	"sync"
	"time"
)

// entry は1キー分の試行タイムスタンプ列と最終アクセス時刻を保持する。
type entry struct {
	attempts   []time.Time
	lastAccess time.Time
}

// MemoryStore はプロセス内メモリ上のAttemptStore実装。
// キーごとのタイムスタンプ列を判定のたびに剪定するため、
// ウィンドウ境界の誤差なしに判定できる。単一プロセス構成向け。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry

	now    func() time.Time
	stopCh chan struct{}
}

// NewMemoryStore はMemoryStoreを生成し、期限切れキーの
// バックグラウンドクリーンアップを開始する。
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop(cleanupInterval)

	return s
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}

// Allow はAttemptStoreを実装する。読み取り・剪定・追記を
// 単一のロック区間で行う。
func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.lastAccess = now

	// ウィンドウ外のタイムスタンプを取り除く
	kept := e.attempts[:0]
	for _, t := range e.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.attempts = kept

	if len(e.attempts) >= limit {
		retryAfter := e.attempts[0].Add(window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter, nil
	}

	e.attempts = append(e.attempts, now)

	return true, 0, nil
}

// EntryCount は現在保持しているキー数を返す。テストおよびメトリクス用。
func (s *MemoryStore) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// cleanupLoop は一定間隔で期限切れキーを削除する。
func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(interval * 2)
		case <-s.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからttlを超えたキーを削除する。
func (s *MemoryStore) cleanup(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if now.Sub(e.lastAccess) > ttl {
			delete(s.entries, key)
		}
	}
}

// compile-time interface check
var _ AttemptStore = (*MemoryStore)(nil)
