package picker

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/vertotem/Mastodon-Random-Picker/internal/source"
)

// Sentinel states of a pick. Neither is a failure: both offer the user a
// way out (widen the filter, or reset the viewed set).
var (
	// ErrEmptyPool means the display filter matched nothing at all.
	ErrEmptyPool = errors.New("no posts match the current filter")
	// ErrExhausted means every filter-passing post was already shown.
	ErrExhausted = errors.New("every matching post has been shown")
)

// DisplayFilter narrows the pool a pick draws from. Category and date
// checks use the effective record, so a boost is judged by the boosted
// original. The zero value passes everything.
type DisplayFilter struct {
	StartDate   time.Time // inclusive; zero means unbounded
	EndDate     time.Time // inclusive through end of that day; zero means unbounded
	HideReplies bool
	HideReblogs bool
}

// Match reports whether a post passes the filter.
func (f DisplayFilter) Match(p *source.Post) bool {
	if f.HideReblogs && p.IsReblog() {
		return false
	}
	if f.HideReplies && p.IsReply() {
		return false
	}

	created := p.Effective().CreatedAt
	if !f.StartDate.IsZero() && created.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() {
		// The end bound is a date: anything on that calendar day passes.
		end := time.Date(f.EndDate.Year(), f.EndDate.Month(), f.EndDate.Day(),
			0, 0, 0, 0, f.EndDate.Location()).AddDate(0, 0, 1)
		if !created.Before(end) {
			return false
		}
	}
	return true
}

// randIntN draws a pool index. Overridden in tests for determinism.
var randIntN = rand.IntN

// Pick draws one not-yet-seen, filter-passing post uniformly at random,
// marks it viewed (persisted before returning), and returns it. The draw
// carries no weighting or recency bias.
func Pick(ctx context.Context, posts []source.Post, viewed *ViewedSet, filter DisplayFilter) (*source.Post, error) {
	pool := make([]*source.Post, 0, len(posts))
	for i := range posts {
		if filter.Match(&posts[i]) {
			pool = append(pool, &posts[i])
		}
	}
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	unseen := pool[:0]
	for _, p := range pool {
		if !viewed.Has(p.ID) {
			unseen = append(unseen, p)
		}
	}
	if len(unseen) == 0 {
		return nil, ErrExhausted
	}

	p := unseen[randIntN(len(unseen))]
	if err := viewed.Mark(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// PoolSize reports how many posts pass the filter and, of those, how many
// are still unseen. Used for progress display.
func PoolSize(posts []source.Post, viewed *ViewedSet, filter DisplayFilter) (matching, unseen int) {
	for i := range posts {
		if !filter.Match(&posts[i]) {
			continue
		}
		matching++
		if !viewed.Has(posts[i].ID) {
			unseen++
		}
	}
	return matching, unseen
}
