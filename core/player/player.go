// Package player 在聚合好的歌单之上实现播放状态机：
// 加载/播放/暂停/上一首/下一首/自动连播，独占包装一个音频输出句柄。
package player

import (
	"sync"

	"PlayFM/logger"
	"PlayFM/model"
	"PlayFM/notify"
)

// State 播放器状态
type State int

const (
	StateLocked  State = iota // 尚未解锁，音频句柄还没创建
	StateIdle                 // 已解锁但没有加载任何歌曲
	StateLoading              // 正在加载歌曲
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// EventType 音频输出上报的事件类型
type EventType int

const (
	EventEnded EventType = iota // 一首歌自然播放结束
	EventError                  // 播放过程中出错（解码、网络）
)

// Event 音频输出句柄上报的事件
type Event struct {
	Type EventType
	Err  error
}

// Output 音频输出句柄。播放器独占持有，其他组件不准碰。
type Output interface {
	Load(url string) error
	Play() error
	Pause()
	Seek(seconds float64)
	SetVolume(v float64)
	Position() float64
	Duration() float64
	Close() error
}

// OutputFactory 延迟创建音频输出句柄。句柄通过 events 上报事件。
type OutputFactory func(events chan<- Event) (Output, error)

// Queue 播放器消费的歌单视图，由 playlist.Aggregator 实现
type Queue interface {
	Len() int
	Track(index int) (model.Track, bool)
}

// DefaultVolume 默认音量
const DefaultVolume = 0.7

// Player 播放状态机。所有方法都是并发安全的。
type Player struct {
	queue    Queue
	factory  OutputFactory
	notifier notify.Notifier

	mu     sync.Mutex
	out    Output
	events chan Event
	done   chan struct{}
	state  State
	index  int // -1 表示没有加载任何歌曲
	volume float64
}

// NewPlayer 创建播放器，初始状态为 locked
func NewPlayer(queue Queue, factory OutputFactory, notifier notify.Notifier) *Player {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Player{
		queue:    queue,
		factory:  factory,
		notifier: notifier,
		state:    StateLocked,
		index:    -1,
		volume:   DefaultVolume,
	}
}

// Unlock 创建音频输出句柄并进入 idle 状态。幂等：句柄已存在时不做任何事。
// 平台的自动播放限制要求这一步由用户交互触发，这是外部约束，
// 播放器只负责在未解锁时把后续操作降级为无操作。
func (p *Player) Unlock() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.out != nil {
		return nil
	}

	events := make(chan Event, 8)
	out, err := p.factory(events)
	if err != nil {
		return err
	}

	p.out = out
	p.events = events
	p.done = make(chan struct{})
	p.out.SetVolume(p.volume)
	p.state = StateIdle

	go p.eventLoop(events, p.done)

	logger.Info("🔓 音频已解锁")
	return nil
}

// LoadTrack 加载并播放指定下标的歌曲。
// 未解锁或下标越界时是带警告的无操作；播放失败降级为 paused，不向调用方报错。
func (p *Player) LoadTrack(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadTrackLocked(index)
}

func (p *Player) loadTrackLocked(index int) {
	if p.out == nil {
		logger.Warn("⚠️ 音频尚未解锁，忽略加载请求")
		return
	}

	track, ok := p.queue.Track(index)
	if !ok {
		logger.Warn("⚠️ 歌曲下标越界，忽略加载请求", logger.Int("index", index))
		return
	}

	p.index = index
	p.state = StateLoading
	logger.Info("🎵 正在加载歌曲", logger.String("name", track.Name))

	if err := p.out.Load(track.URL); err != nil {
		p.state = StatePaused
		logger.Error("❌ 歌曲加载失败", logger.String("name", track.Name), logger.ErrorField(err))
		p.notifier.Notify(notify.LevelWarn, "无法加载这首歌："+track.Name)
		return
	}

	if err := p.out.Play(); err != nil {
		// 编解码或网络问题：降级为暂停，不向上抛
		p.state = StatePaused
		logger.Error("❌ 无法播放歌曲", logger.String("name", track.Name), logger.ErrorField(err))
		p.notifier.Notify(notify.LevelWarn, "无法播放这首歌："+track.Name)
		return
	}

	p.state = StatePlaying
	logger.Info("▶️ 开始播放", logger.String("name", track.Name))
}

// TogglePlay 在播放和暂停之间切换；句柄不存在时是无操作
func (p *Player) TogglePlay() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.out == nil {
		return
	}

	switch p.state {
	case StatePlaying:
		p.out.Pause()
		p.state = StatePaused
		logger.Info("⏸️ 暂停")
	case StatePaused:
		if err := p.out.Play(); err != nil {
			logger.Error("❌ 无法继续播放", logger.ErrorField(err))
			return
		}
		p.state = StatePlaying
		logger.Info("▶️ 继续播放")
	}
}

// PlayNext 播放下一首，越过末尾时回绕到第一首
func (p *Player) PlayNext() {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.queue.Len()
	if n == 0 {
		return
	}
	next := p.index + 1
	if next >= n {
		next = 0
	}
	p.loadTrackLocked(next)
}

// PlayPrev 播放上一首，越过开头时回绕到最后一首
func (p *Player) PlayPrev() {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.queue.Len()
	if n == 0 {
		return
	}
	prev := p.index - 1
	if prev < 0 {
		prev = n - 1
	}
	p.loadTrackLocked(prev)
}

// Seek 跳转到指定秒数；句柄不存在时是无操作
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.Seek(seconds)
	}
}

// SetVolume 设置音量[0,1]。句柄还没创建时先记下来，创建时生效。
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	if p.out != nil {
		p.out.SetVolume(v)
	}
}

// Close 播放器销毁：暂停、释放句柄、停掉事件循环
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.out == nil {
		return nil
	}

	p.out.Pause()
	err := p.out.Close()
	close(p.done)

	p.out = nil
	p.events = nil
	p.done = nil
	p.state = StateLocked
	return err
}

// State 当前状态
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CurrentIndex 当前歌曲下标，没有加载时为-1
func (p *Player) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// IsPlaying 是否正在播放
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StatePlaying
}

// IsUnlocked 音频句柄是否已创建
func (p *Player) IsUnlocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out != nil
}

// Volume 当前音量
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Position 当前播放位置（秒），句柄不存在时为0
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return 0
	}
	return p.out.Position()
}

// Duration 当前歌曲总时长（秒），句柄不存在时为0
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return 0
	}
	return p.out.Duration()
}

// eventLoop 消费音频句柄上报的事件。自然播放结束时自动切到下一首，
// 这是歌单唯一的连播机制。
func (p *Player) eventLoop(events <-chan Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case EventEnded:
				logger.Info("⏭️ 播放结束，自动切换下一首")
				p.PlayNext()
			case EventError:
				p.mu.Lock()
				p.state = StatePaused
				p.mu.Unlock()
				logger.Error("❌ 播放出错", logger.ErrorField(ev.Err))
				p.notifier.Notify(notify.LevelWarn, "⚠️ 这首歌无法继续播放")
			}
		}
	}
}
