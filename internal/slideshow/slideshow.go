// Package slideshow は車両画像のスライドショーの状態を管理する。
// 一定間隔でインデックスを進め、手動操作のたびにタイマーをリセットする。
package slideshow

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultInterval は自動送りの既定の間隔。
const DefaultInterval = 5 * time.Second

// ErrIndexOutOfRange はGoToに範囲外のインデックスが指定された場合に返される。
var ErrIndexOutOfRange = errors.New("slideshow: index out of range")

// Slideshow は固定長のスライド列に対するインデックスと自動送りタイマーを保持する。
// Stopの後はすべての操作が何もしない。
type Slideshow struct {
	clock    clock.Clock
	interval time.Duration
	count    int
	onChange func(index int)

	mu      sync.Mutex
	index   int
	gen     uint64
	timer   *clock.Timer
	stopped bool
	done    chan struct{}
}

// New はスライドショーを生成し、自動送りを開始する。
// countが1以下の場合は自動送りを行わない。
// onChangeはインデックスが変わるたびに呼ばれる（nil可）。
func New(clk clock.Clock, count int, interval time.Duration, onChange func(index int)) *Slideshow {
	return NewAt(clk, count, 0, interval, onChange)
}

// NewAt はstartのスライドから始まるスライドショーを生成する。
// 範囲外のstartは0として扱う。開始時点ではonChangeを呼ばない。
func NewAt(clk clock.Clock, count, start int, interval time.Duration, onChange func(index int)) *Slideshow {
	if start < 0 || start >= count {
		start = 0
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Slideshow{
		clock:    clk,
		interval: interval,
		count:    max(count, 0),
		onChange: onChange,
		index:    start,
		done:     make(chan struct{}),
	}
	s.mu.Lock()
	s.armLocked()
	s.mu.Unlock()
	return s
}

// Index は現在のインデックスを返す。
func (s *Slideshow) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Len はスライドの数を返す。
func (s *Slideshow) Len() int {
	return s.count
}

// Next は次のスライドへ進め、タイマーをリセットする。
func (s *Slideshow) Next() {
	s.move(func(i int) int { return (i + 1) % s.count })
}

// Prev は前のスライドへ戻し、タイマーをリセットする。
func (s *Slideshow) Prev() {
	s.move(func(i int) int { return (i - 1 + s.count) % s.count })
}

// GoTo は指定したスライドへ移動し、タイマーをリセットする。
func (s *Slideshow) GoTo(index int) error {
	if index < 0 || index >= s.count {
		return ErrIndexOutOfRange
	}
	s.move(func(int) int { return index })
	return nil
}

// Stop はタイマーを止める。以後の操作と自動送りは行われない。
func (s *Slideshow) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	close(s.done)
}

// Done はStopされたときに閉じられるチャネルを返す。
func (s *Slideshow) Done() <-chan struct{} {
	return s.done
}

func (s *Slideshow) move(next func(int) int) {
	s.mu.Lock()
	if s.stopped || s.count == 0 {
		s.mu.Unlock()
		return
	}
	s.index = next(s.index)
	idx := s.index
	s.armLocked()
	s.mu.Unlock()

	s.notify(idx)
}

// armLocked は既存のタイマーを止め、interval後に自動送りするタイマーを設定する。
// 世代番号が一致しない発火は、リセット前に発火していた古いタイマーとして無視される。
func (s *Slideshow) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	if s.stopped || s.count < 2 {
		return
	}
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.interval, func() { s.advance(gen) })
}

func (s *Slideshow) advance(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.index = (s.index + 1) % s.count
	idx := s.index
	s.armLocked()
	s.mu.Unlock()

	s.notify(idx)
}

func (s *Slideshow) notify(idx int) {
	if s.onChange != nil {
		s.onChange(idx)
	}
}
