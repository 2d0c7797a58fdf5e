package playback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heimdex/heimdex-cut/internal/interval"
	"github.com/heimdex/heimdex-cut/internal/timeline"
)

// Media is the playback element the player drives. CurrentTime is polled;
// Seek moves the source position.
type Media interface {
	CurrentTime() float64
	Seek(sourceTime float64) error
}

// Player follows a media element's source position and keeps it inside the
// edit. In edited mode it jumps over skip intervals. In composed mode it
// loops repeats and advances between clips.
type Player struct {
	media        Media
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool

	mu       sync.Mutex
	mode     Mode
	skips    []interval.Interval
	tl       *timeline.Timeline
	clip     int
	repeat   int
	lastTime float64
	ended    bool
}

func NewPlayer(media Media, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		media:        media,
		logger:       logger,
		pollInterval: 50 * time.Millisecond,
		mode:         ModeEdited,
		tl:           &timeline.Timeline{},
	}
}

// SetPollInterval changes how often Run samples the media position.
func (p *Player) SetPollInterval(d time.Duration) {
	if d > 0 {
		p.pollInterval = d
	}
}

func (p *Player) SetMode(mode Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	p.ended = false
}

func (p *Player) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetSkips replaces the skip intervals used in edited mode.
func (p *Player) SetSkips(skips []interval.Interval) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skips = append([]interval.Interval(nil), skips...)
}

// SetTimeline swaps in a recomposed timeline. The tracked clip is found
// again by segment id; if its segment is gone the position is resolved from
// the last observed source time.
func (p *Player) SetTimeline(tl *timeline.Timeline) {
	if tl == nil {
		tl = &timeline.Timeline{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	prevSegment := -1
	if p.clip < len(p.tl.Clips) {
		prevSegment = p.tl.Clips[p.clip].SegmentID
	}
	p.tl = tl
	p.ended = false

	if i := tl.IndexOfSegment(prevSegment); i >= 0 {
		p.clip = i
		if p.repeat > tl.Clips[i].Repeat-1 {
			p.repeat = tl.Clips[i].Repeat - 1
		}
		return
	}
	p.resolve(p.lastTime)
}

func (p *Player) resolve(src float64) {
	p.clip, p.repeat = 0, 0
	for i, c := range p.tl.Clips {
		if src >= c.SourceStart && src < c.SourceEnd {
			p.clip = i
			return
		}
	}
}

// Position returns the tracked clip and repeat index.
func (p *Player) Position() (clip, repeat int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clip, p.repeat
}

// Ended reports whether composed playback ran past the last clip.
func (p *Player) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

// Rate is the playback rate the media element should use right now.
func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != ModeComposed || p.clip >= len(p.tl.Clips) {
		return 1
	}
	return p.tl.Clips[p.clip].Speed
}

// SeekOutput jumps to a position on the composed timeline.
func (p *Player) SeekOutput(out float64) error {
	p.mu.Lock()
	pos, ok := p.tl.SourceTimeAt(out)
	if !ok {
		p.mu.Unlock()
		return nil
	}
	p.clip, p.repeat, p.ended = pos.Clip, pos.Repeat, false
	p.lastTime = pos.SourceTime
	p.mu.Unlock()

	return p.media.Seek(pos.SourceTime)
}

// OutputTime is the current position on the composed timeline, using the
// tracked clip and repeat to disambiguate duplicated source ranges.
func (p *Player) OutputTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, _ := p.tl.OutputTimeInClip(p.lastTime, p.clip, p.repeat)
	return out
}

// Tick processes one observed source time and seeks when the edit requires
// it. It returns the source time that was sought to, if any.
func (p *Player) Tick(src float64) (float64, bool, error) {
	target, seek := p.step(src)
	if !seek {
		return 0, false, nil
	}
	if err := p.media.Seek(target); err != nil {
		return 0, false, err
	}
	return target, true, nil
}

func (p *Player) step(src float64) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastTime = src

	switch p.mode {
	case ModeEdited:
		if i := interval.Find(p.skips, src); i >= 0 {
			p.lastTime = p.skips[i].End
			return p.skips[i].End, true
		}
		return 0, false

	case ModeComposed:
		if p.ended || len(p.tl.Clips) == 0 {
			return 0, false
		}
		if p.clip >= len(p.tl.Clips) {
			p.resolve(src)
		}
		c := p.tl.Clips[p.clip]
		if src < c.SourceEnd {
			return 0, false
		}
		if p.repeat < c.Repeat-1 {
			p.repeat++
			p.lastTime = c.SourceStart
			return c.SourceStart, true
		}
		if p.clip+1 >= len(p.tl.Clips) {
			p.ended = true
			return 0, false
		}
		p.clip++
		p.repeat = 0
		next := p.tl.Clips[p.clip]
		p.lastTime = next.SourceStart
		return next.SourceStart, true
	}
	return 0, false
}

// Run polls the media position until ctx is cancelled.
func (p *Player) Run(ctx context.Context) {
	if p.running.Swap(true) {
		return
	}
	defer p.running.Store(false)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := p.Tick(p.media.CurrentTime()); err != nil {
				p.logger.Warn("seek failed", "error", err)
			}
		}
	}
}

func (p *Player) IsRunning() bool {
	return p.running.Load()
}
