package session

import (
	"context"
	"errors"
	"sync"
)

// 永続化されるキー
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrNotFound はキーが保存されていない場合に返される。
var ErrNotFound = errors.New("session: key not found")

// Storage は1セッション分のキーバリューストア。
type Storage interface {
	// Get はキーの値を返す。保存されていない場合はErrNotFoundを返す。
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Backend はセッションIDごとのStorageを提供する。
type Backend interface {
	For(sessionID string) Storage
}

// MemoryBackend はプロセス内メモリに保存するBackend。
// 単一ノード構成とテストで使用する。
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryBackend はMemoryBackendを生成する。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string]string)}
}

// For はセッションIDに対応するStorageを返す。
func (b *MemoryBackend) For(sessionID string) Storage {
	return &memoryStorage{backend: b, sessionID: sessionID}
}

type memoryStorage struct {
	backend   *MemoryBackend
	sessionID string
}

func (s *memoryStorage) Get(_ context.Context, key string) (string, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	v, ok := s.backend.data[s.sessionID][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memoryStorage) Set(_ context.Context, key, value string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	m, ok := s.backend.data[s.sessionID]
	if !ok {
		m = make(map[string]string)
		s.backend.data[s.sessionID] = m
	}
	m[key] = value
	return nil
}

func (s *memoryStorage) Delete(_ context.Context, keys ...string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	m, ok := s.backend.data[s.sessionID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(m, k)
	}
	if len(m) == 0 {
		delete(s.backend.data, s.sessionID)
	}
	return nil
}
