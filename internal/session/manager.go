package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Recorder はセッションの状態遷移を計測するインターフェース。
type Recorder interface {
	RecordSessionTransition(event string)
	SetActiveSessions(n int)
}

// 状態遷移イベント
const (
	EventAuthenticated = "authenticated"
	EventCleared       = "cleared"
)

// ManagerConfig はManagerの設定を保持する。
type ManagerConfig struct {
	IdleTimeout     time.Duration // メモリ上のStoreを破棄するまでの無操作時間
	CleanupInterval time.Duration // 無操作Storeの破棄を確認する間隔
	LogoutTimeout   time.Duration // ログアウト通知のタイムアウト
	LandingPath     string        // ログアウト後の遷移先
}

// DefaultManagerConfig はデフォルトの設定を返す。
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		IdleTimeout:     30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		LogoutTimeout:   5 * time.Second,
	}
}

// storeEntry はStoreと最終アクセス時刻を保持する。
type storeEntry struct {
	store       *Store
	restoreOnce sync.Once
	lastAccess  time.Time
	unsubscribe func()
}

// Manager はセッションIDごとのStoreを管理する。
// 初めて参照されたセッションはStoreを生成して永続化層から復元する。
// 一定時間参照されないStoreはメモリ上からのみ破棄され、永続化された状態は残る。
type Manager struct {
	backend  Backend
	api      AuthAPI
	logger   *slog.Logger
	config   ManagerConfig
	recorder Recorder

	mu     sync.Mutex
	stores map[string]*storeEntry
	active atomic.Int64

	retired sync.WaitGroup
	stopCh  chan struct{}
	stopped sync.Once
}

// NewManager は新しいManagerを生成する。
// バックグラウンドで無操作Storeのクリーンアップを開始する。
func NewManager(backend Backend, api AuthAPI, logger *slog.Logger, config ManagerConfig) *Manager {
	m := &Manager{
		backend: backend,
		api:     api,
		logger:  logger,
		config:  config,
		stores:  make(map[string]*storeEntry),
		stopCh:  make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go m.cleanupLoop()
	}

	return m
}

// SetRecorder は状態遷移の計測先を設定する。Getを呼ぶ前に設定すること。
func (m *Manager) SetRecorder(r Recorder) {
	m.recorder = r
}

// Get はセッションIDに対応するStoreを返す。
// 初回参照時はStoreを生成し、永続化された状態を復元してから返す。
func (m *Manager) Get(ctx context.Context, sessionID string) *Store {
	m.mu.Lock()
	entry, exists := m.stores[sessionID]
	if !exists {
		entry = m.newEntry(sessionID)
		m.stores[sessionID] = entry
	}
	entry.lastAccess = time.Now()
	m.mu.Unlock()

	entry.restoreOnce.Do(func() {
		entry.store.Restore(context.WithoutCancel(ctx))
	})
	return entry.store
}

// Len はメモリ上で管理しているStoreの数を返す。
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// ActiveSessions はメモリ上の認証済みセッション数を返す。
func (m *Manager) ActiveSessions() int {
	return int(m.active.Load())
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (m *Manager) Stop() {
	m.stopped.Do(func() { close(m.stopCh) })
}

// Wait は全Storeの実行中のログアウト通知が終わるまで待つ。
func (m *Manager) Wait() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, e := range m.stores {
		stores = append(stores, e.store)
	}
	m.mu.Unlock()

	for _, s := range stores {
		s.Wait()
	}
	m.retired.Wait()
}

func (m *Manager) newEntry(sessionID string) *storeEntry {
	store := NewStore(sessionID, m.backend.For(sessionID), m.api, m.logger)
	if m.config.LogoutTimeout > 0 {
		store.LogoutTimeout = m.config.LogoutTimeout
	}
	if m.config.LandingPath != "" {
		store.LandingPath = m.config.LandingPath
	}

	entry := &storeEntry{store: store}
	var authenticated atomic.Bool
	entry.unsubscribe = store.Subscribe(func(s Session) {
		now := s.IsAuthenticated()
		if authenticated.Swap(now) == now {
			return
		}
		m.onTransition(store.ID(), s, now)
	})
	return entry
}

func (m *Manager) onTransition(sessionID string, s Session, authenticated bool) {
	event := EventCleared
	if authenticated {
		event = EventAuthenticated
		m.active.Add(1)
	} else {
		m.active.Add(-1)
	}

	attrs := []any{
		slog.String("session_id", sessionID),
		slog.String("event", event),
	}
	if s.User != nil {
		attrs = append(attrs, slog.Int64("user_id", s.User.ID), slog.String("role", string(s.User.Role)))
	}
	m.logger.Info("session transition", attrs...)

	if m.recorder != nil {
		m.recorder.RecordSessionTransition(event)
		m.recorder.SetActiveSessions(m.ActiveSessions())
	}
}

// cleanupLoop は定期的に無操作Storeを破棄する。
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle(time.Now())
		case <-m.stopCh:
			return
		}
	}
}

// evictIdle はIdleTimeoutを超えて参照されていないStoreを破棄する。
// 認証済みのStoreを破棄した場合はアクティブ数から除く。
func (m *Manager) evictIdle(now time.Time) int {
	threshold := now.Add(-m.config.IdleTimeout)

	m.mu.Lock()
	var evicted []*storeEntry
	for id, e := range m.stores {
		if e.lastAccess.Before(threshold) {
			evicted = append(evicted, e)
			delete(m.stores, id)
		}
	}
	m.mu.Unlock()

	for _, e := range evicted {
		e.unsubscribe()
		if e.store.IsAuthenticated() {
			m.active.Add(-1)
		}
		m.retired.Add(1)
		go func(s *Store) {
			defer m.retired.Done()
			s.Wait()
		}(e.store)
	}

	if len(evicted) > 0 {
		m.logger.Debug("evicted idle sessions", slog.Int("count", len(evicted)))
		if m.recorder != nil {
			m.recorder.SetActiveSessions(m.ActiveSessions())
		}
	}
	return len(evicted)
}
