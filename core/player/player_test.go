package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"PlayFM/model"
	"PlayFM/notify"
)

// fakeQueue 固定内容的歌单视图
type fakeQueue struct {
	tracks []model.Track
}

func (q *fakeQueue) Len() int { return len(q.tracks) }

func (q *fakeQueue) Track(index int) (model.Track, bool) {
	if index < 0 || index >= len(q.tracks) {
		return model.Track{}, false
	}
	return q.tracks[index], true
}

// fakeOutput 记录调用的音频输出假实现
type fakeOutput struct {
	mu        sync.Mutex
	loadedURL string
	playErr   error
	loadErr   error
	playing   bool
	volume    float64
	seekTo    float64
	closed    bool
}

func (o *fakeOutput) Load(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loadErr != nil {
		return o.loadErr
	}
	o.loadedURL = url
	return nil
}

func (o *fakeOutput) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playErr != nil {
		return o.playErr
	}
	o.playing = true
	return nil
}

func (o *fakeOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playing = false
}

func (o *fakeOutput) Seek(seconds float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seekTo = seconds
}

func (o *fakeOutput) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = v
}

func (o *fakeOutput) Position() float64 { return 12.5 }
func (o *fakeOutput) Duration() float64 { return 180 }

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *fakeOutput) getVolume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func queue(names ...string) *fakeQueue {
	q := &fakeQueue{}
	for _, n := range names {
		q.tracks = append(q.tracks, model.Track{Name: n, URL: "https://signed.example/" + n})
	}
	return q
}

// newTestPlayer 返回播放器、输出句柄和事件通道
func newTestPlayer(t *testing.T, q Queue, out *fakeOutput) (*Player, chan<- Event) {
	t.Helper()
	var events chan<- Event
	p := NewPlayer(q, func(ev chan<- Event) (Output, error) {
		events = ev
		return out, nil
	}, notify.Discard{})
	if err := p.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	return p, events
}

func TestLockedPlayerIgnoresLoadTrack(t *testing.T) {
	p := NewPlayer(queue("a.mp3"), func(chan<- Event) (Output, error) {
		t.Fatal("factory should not be called before Unlock")
		return nil, nil
	}, notify.Discard{})

	p.LoadTrack(0)

	if p.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex = %d, want -1", p.CurrentIndex())
	}
	if p.IsPlaying() {
		t.Error("IsPlaying = true, want false")
	}
	if p.State() != StateLocked {
		t.Errorf("State = %s, want locked", p.State())
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	calls := 0
	p := NewPlayer(queue("a.mp3"), func(chan<- Event) (Output, error) {
		calls++
		return &fakeOutput{}, nil
	}, notify.Discard{})

	if err := p.Unlock(); err != nil {
		t.Fatalf("first Unlock: %v", err)
	}
	if err := p.Unlock(); err != nil {
		t.Fatalf("second Unlock: %v", err)
	}
	if calls != 1 {
		t.Errorf("factory calls = %d, want 1", calls)
	}
	if p.State() != StateIdle {
		t.Errorf("State = %s, want idle", p.State())
	}
}

func TestUnlockFactoryError(t *testing.T) {
	p := NewPlayer(queue("a.mp3"), func(chan<- Event) (Output, error) {
		return nil, errors.New("no audio device")
	}, notify.Discard{})

	if err := p.Unlock(); err == nil {
		t.Fatal("expected error from Unlock")
	}
	if p.IsUnlocked() {
		t.Error("IsUnlocked = true after factory failure")
	}
}

func TestLoadTrackOutOfRangeIsNoOp(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue("a.mp3", "b.mp3"), out)

	for _, index := range []int{-1, 2, 99} {
		p.LoadTrack(index)
		if p.CurrentIndex() != -1 {
			t.Errorf("LoadTrack(%d): CurrentIndex = %d, want -1", index, p.CurrentIndex())
		}
		if p.IsPlaying() {
			t.Errorf("LoadTrack(%d): IsPlaying = true, want false", index)
		}
	}
}

func TestLoadTrackPlays(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue("a.mp3", "b.mp3"), out)

	p.LoadTrack(1)

	if p.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex = %d, want 1", p.CurrentIndex())
	}
	if p.State() != StatePlaying {
		t.Errorf("State = %s, want playing", p.State())
	}
	if out.loadedURL != "https://signed.example/b.mp3" {
		t.Errorf("loaded URL = %q", out.loadedURL)
	}
}

func TestLoadTrackPlaybackFailureDowngradesToPaused(t *testing.T) {
	out := &fakeOutput{playErr: errors.New("unsupported codec")}
	p, _ := newTestPlayer(t, queue("a.mp3"), out)

	p.LoadTrack(0) // 不会panic也不会返回错误

	if p.State() != StatePaused {
		t.Errorf("State = %s, want paused", p.State())
	}
	if p.IsPlaying() {
		t.Error("IsPlaying = true, want false")
	}
	// 失败的加载仍然更新了下标
	if p.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex = %d, want 0", p.CurrentIndex())
	}
}

func TestPlayNextWrapsAround(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue("a.mp3", "b.mp3", "c.mp3"), out)

	p.LoadTrack(2) // 最后一首
	p.PlayNext()

	if p.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex = %d, want wraparound to 0", p.CurrentIndex())
	}
}

func TestPlayPrevWrapsAround(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue("a.mp3", "b.mp3", "c.mp3"), out)

	p.LoadTrack(0)
	p.PlayPrev()

	if p.CurrentIndex() != 2 {
		t.Errorf("CurrentIndex = %d, want wraparound to 2", p.CurrentIndex())
	}
}

func TestPlayNextOnEmptyPlaylistIsNoOp(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue(), out)

	p.PlayNext()
	p.PlayPrev()

	if p.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex = %d, want -1", p.CurrentIndex())
	}
}

func TestTogglePlay(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue("a.mp3"), out)

	p.LoadTrack(0)
	if !p.IsPlaying() {
		t.Fatal("not playing after LoadTrack")
	}

	p.TogglePlay()
	if p.State() != StatePaused {
		t.Errorf("State = %s, want paused", p.State())
	}

	p.TogglePlay()
	if p.State() != StatePlaying {
		t.Errorf("State = %s, want playing", p.State())
	}
}

func TestTogglePlayBeforeUnlockIsNoOp(t *testing.T) {
	p := NewPlayer(queue("a.mp3"), func(chan<- Event) (Output, error) {
		return &fakeOutput{}, nil
	}, notify.Discard{})

	p.TogglePlay() // 不panic

	if p.State() != StateLocked {
		t.Errorf("State = %s, want locked", p.State())
	}
}

func TestVolumeRecordedBeforeUnlock(t *testing.T) {
	out := &fakeOutput{}
	p := NewPlayer(queue("a.mp3"), func(chan<- Event) (Output, error) {
		return out, nil
	}, notify.Discard{})

	if p.Volume() != DefaultVolume {
		t.Errorf("default Volume = %v, want %v", p.Volume(), DefaultVolume)
	}

	p.SetVolume(0.3)
	if err := p.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	// 解锁时把记下的音量应用到新句柄上
	if got := out.getVolume(); got != 0.3 {
		t.Errorf("output volume = %v, want 0.3", got)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue("a.mp3"), out)

	p.SetVolume(1.5)
	if p.Volume() != 1 {
		t.Errorf("Volume = %v, want clamped to 1", p.Volume())
	}
	p.SetVolume(-0.5)
	if p.Volume() != 0 {
		t.Errorf("Volume = %v, want clamped to 0", p.Volume())
	}
}

func TestSeekPassThrough(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue("a.mp3"), out)

	p.LoadTrack(0)
	p.Seek(42)

	out.mu.Lock()
	defer out.mu.Unlock()
	if out.seekTo != 42 {
		t.Errorf("seekTo = %v, want 42", out.seekTo)
	}
}

func TestAutoAdvanceOnEnded(t *testing.T) {
	out := &fakeOutput{}
	p, events := newTestPlayer(t, queue("a.mp3", "b.mp3"), out)

	p.LoadTrack(0)
	events <- Event{Type: EventEnded}

	// 事件循环是异步的，轮询等待切歌完成
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.CurrentIndex() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("CurrentIndex = %d, want auto-advance to 1", p.CurrentIndex())
}

func TestPlaybackErrorEventPauses(t *testing.T) {
	out := &fakeOutput{}
	p, events := newTestPlayer(t, queue("a.mp3"), out)

	p.LoadTrack(0)
	events <- Event{Type: EventError, Err: errors.New("stream stalled")}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.State() == StatePaused {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("State = %s, want paused after error event", p.State())
}

func TestCloseReleasesHandle(t *testing.T) {
	out := &fakeOutput{}
	p, _ := newTestPlayer(t, queue("a.mp3"), out)

	p.LoadTrack(0)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out.mu.Lock()
	closed, playing := out.closed, out.playing
	out.mu.Unlock()
	if !closed {
		t.Error("output not closed")
	}
	if playing {
		t.Error("output still playing after Close")
	}
	if p.IsUnlocked() {
		t.Error("IsUnlocked = true after Close")
	}
	// 关闭后重复Close是无操作
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestPositionDurationWithoutHandle(t *testing.T) {
	p := NewPlayer(queue("a.mp3"), func(chan<- Event) (Output, error) {
		return &fakeOutput{}, nil
	}, notify.Discard{})

	if p.Position() != 0 || p.Duration() != 0 {
		t.Errorf("Position/Duration = %v/%v, want 0/0 before unlock", p.Position(), p.Duration())
	}
}
