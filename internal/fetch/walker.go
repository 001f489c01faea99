package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vertotem/Mastodon-Random-Picker/internal/source"
)

// Direction selects the walk's entry condition.
type Direction string

const (
	// DirInitial starts with no cursor and fills an empty collection.
	DirInitial Direction = "initial"
	// DirOlder continues back in history from the oldest held post.
	DirOlder Direction = "older"
	// DirNewer catches up from the newest held post. At most one page is
	// fetched and prepended; anything past one page of new posts is missed.
	DirNewer Direction = "newer"
)

// Mode is the truncation policy for a walk.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeCount Mode = "limit_count"
	ModeDate  Mode = "limit_date"
)

// Config parameterizes one walk.
type Config struct {
	Mode           Mode
	LimitCount     int       // ModeCount: stop once this many posts were added
	LimitDate      time.Time // ModeDate: keep posts at or after this instant
	BatchSize      int
	ExcludeReplies bool
	ExcludeReblogs bool
	PageDelay      time.Duration // rest between successive pages
}

const (
	DefaultBatchSize = 40
	DefaultPageDelay = 350 * time.Millisecond
	maxBatchSize     = 80
)

// State is the walker's externally visible phase.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// pageSleep rests between successive pages. Overridden in tests.
var pageSleep = time.Sleep

// Result summarizes one completed walk.
type Result struct {
	Pages   int
	Added   int
	Stopped bool // terminated by a stop request rather than exhaustion
}

// Walker drives repeated Page calls in one direction under the control's
// cooperative pause/stop signals. Pages are requested and merged strictly
// sequentially; the session's single-active-walk rule keeps two walkers
// from running at once.
type Walker struct {
	src     source.Source
	cfg     Config
	ctrl    *Control
	state   atomic.Int32
	onMerge func(total int)
}

// NewWalker creates a walker. onMerge, if non-nil, is called with the new
// collection total after every merged page (incremental progress display).
func NewWalker(src source.Source, cfg Config, ctrl *Control, onMerge func(total int)) *Walker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > maxBatchSize {
		cfg.BatchSize = maxBatchSize
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = DefaultPageDelay
	}
	if ctrl == nil {
		ctrl = NewControl(0)
	}
	return &Walker{src: src, cfg: cfg, ctrl: ctrl, onMerge: onMerge}
}

// State returns the walker's current phase.
func (w *Walker) State() State {
	return State(w.state.Load())
}

// Walk runs one walk to its terminal state. A stop request ends the walk
// with Result.Stopped set and no error. Transport and format failures
// abort the walk; pages merged before the failure stay in the collection.
func (w *Walker) Walk(ctx context.Context, accountID string, col *Collection, dir Direction) (Result, error) {
	var cursor string
	switch dir {
	case DirInitial:
		if col.Len() != 0 {
			return Result{}, errors.New("initial walk requires an empty collection")
		}
	case DirOlder:
		cursor = col.OldestID()
	case DirNewer:
		cursor = col.NewestID()
	default:
		return Result{}, fmt.Errorf("unknown direction %q", dir)
	}

	w.state.Store(int32(StateFetching))
	var res Result
	defer func() {
		if res.Stopped {
			w.state.Store(int32(StateStopped))
		} else {
			w.state.Store(int32(StateIdle))
		}
	}()

	for {
		if w.ctrl.Stopped() {
			res.Stopped = true
			return res, nil
		}
		if w.ctrl.Paused() {
			w.state.Store(int32(StatePaused))
			err := w.ctrl.wait(ctx)
			w.state.Store(int32(StateFetching))
			if errors.Is(err, errStopped) {
				res.Stopped = true
				return res, nil
			}
			if err != nil {
				return res, err
			}
		}

		opts := source.PageOpts{
			Limit:          w.cfg.BatchSize,
			ExcludeReplies: w.cfg.ExcludeReplies,
			ExcludeReblogs: w.cfg.ExcludeReblogs,
		}
		if dir == DirNewer {
			opts.SinceID = cursor
		} else {
			opts.MaxID = cursor
		}

		page, err := w.src.Page(ctx, accountID, opts)
		if err != nil {
			return res, err
		}
		// A stop that arrived while the request was in flight discards
		// the page: no merge happens after the stop is observed.
		if w.ctrl.Stopped() {
			res.Stopped = true
			return res, nil
		}
		if len(page) == 0 {
			return res, nil
		}
		res.Pages++

		if dir == DirNewer {
			col.Prepend(page)
			res.Added += len(page)
			w.notify(col)
			return res, nil
		}

		if w.cfg.Mode == ModeDate {
			kept, crossed := truncateByDate(page, w.cfg.LimitDate)
			col.Append(kept)
			res.Added += len(kept)
			w.notify(col)
			// The page containing the boundary ends the walk; the
			// cutoff precision is one page, not a global scan.
			if crossed {
				return res, nil
			}
		} else {
			col.Append(page)
			res.Added += len(page)
			w.notify(col)
		}

		// Overshoot, don't undershoot: items beyond the limit inside the
		// final page were kept above.
		if w.cfg.Mode == ModeCount && dir == DirInitial && res.Added >= w.cfg.LimitCount {
			return res, nil
		}

		// A short page is the last page.
		if len(page) < w.cfg.BatchSize {
			return res, nil
		}

		cursor = page[len(page)-1].ID
		pageSleep(w.cfg.PageDelay)
	}
}

func (w *Walker) notify(col *Collection) {
	if w.onMerge != nil {
		w.onMerge(col.Len())
	}
}

// truncateByDate filters a newest-first page to posts whose effective
// creation time is at or after the cutoff. crossed reports whether the
// page reached past the cutoff, which terminates the walk.
func truncateByDate(page []source.Post, cutoff time.Time) (kept []source.Post, crossed bool) {
	if cutoff.IsZero() {
		return page, false
	}
	kept = make([]source.Post, 0, len(page))
	for i := range page {
		if page[i].Effective().CreatedAt.Before(cutoff) {
			crossed = true
			continue
		}
		kept = append(kept, page[i])
	}
	return kept, crossed
}
