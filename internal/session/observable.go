package session

import (
	"sort"
	"sync"
)

// Observable は現在値と購読者を保持するコンテナ。
// Getは最新値を同期的に返し、Setは値を保存して全購読者に通知する。
type Observable[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID int
	subs   map[int]func(T)
}

// NewObservable は初期値を持つObservableを生成する。
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get は現在値を返す。
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set は値を更新し、購読順に購読者へ通知する。
// 通知はロックの外で行うため、購読者からGetやSubscribeを呼び出してもよい。
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.subs[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe は値の変更を受け取る関数を登録し、登録解除用の関数を返す。
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}
