// Package session ties a resolved account, its fetched collection, and its
// viewing progress together and runs walks against them. All state lives on
// the Session value; nothing here is package-global.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"github.com/vertotem/Mastodon-Random-Picker/internal/config"
	"github.com/vertotem/Mastodon-Random-Picker/internal/fetch"
	"github.com/vertotem/Mastodon-Random-Picker/internal/picker"
	"github.com/vertotem/Mastodon-Random-Picker/internal/snapshot"
	"github.com/vertotem/Mastodon-Random-Picker/internal/source"
	"github.com/vertotem/Mastodon-Random-Picker/internal/store"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Store key prefixes. The viewed-set key lives in package picker.
const (
	cacheKeyPrefix   = "cached_data_"
	accountKeyPrefix = "account_"
)

var (
	// ErrBusy means a walk is already running on this session.
	ErrBusy = errors.New("a fetch is already in progress")
	// ErrNoMatch means a completed walk found no posts at all.
	ErrNoMatch = errors.New("no posts found for this account")
	// ErrNoSession means no account has been started or loaded yet.
	ErrNoSession = errors.New("no account loaded; fetch one first")
)

// Session owns one account's working state: the source it came from, the
// collection fetched so far, and the viewed set. A Session is safe to
// control (Pause/Resume/Stop) from a goroutine other than the one walking.
type Session struct {
	st  *store.Store
	cfg *config.Config

	// Warnf receives non-fatal notices, e.g. a failed cache write after a
	// successful walk. Defaults to discarding them.
	Warnf func(format string, args ...any)

	src     source.Source
	account source.Account
	col     *fetch.Collection
	viewed  *picker.ViewedSet

	mu       sync.Mutex // guards ctrl
	ctrl     *fetch.Control
	fetching atomic.Bool
}

// New creates an empty session over the given store and config.
func New(st *store.Store, cfg *config.Config) *Session {
	return &Session{
		st:    st,
		cfg:   cfg,
		Warnf: func(string, ...any) {},
		col:   fetch.NewCollection(nil),
	}
}

// Account returns the resolved account, zero until Start/Load/Import.
func (s *Session) Account() source.Account { return s.account }

// Posts returns the collection fetched or loaded so far, newest first.
func (s *Session) Posts() []source.Post { return s.col.Posts() }

// ViewedCount returns how many posts of this account were already shown.
func (s *Session) ViewedCount() int {
	if s.viewed == nil {
		return 0
	}
	return s.viewed.Len()
}

// Pause suspends the running walk after its current page. No-op when idle.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		s.ctrl.Pause()
	}
}

// Resume lifts a pause. No-op when idle.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		s.ctrl.Resume()
	}
}

// Stop terminates the running walk; already merged pages are kept. The walk
// notices within one poll interval even while paused. No-op when idle.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		s.ctrl.Stop()
	}
}

// Start resolves the profile behind rawRef (a profile URL or @user@domain
// handle), begins a fresh collection, and walks back from the newest post.
// Progress already stored for the account (viewed set) is kept. onMerge, if
// non-nil, is called with the running total after every merged page.
func (s *Session) Start(ctx context.Context, rawRef string, walkCfg fetch.Config, onMerge func(total int)) (fetch.Result, error) {
	profile, err := source.ParseProfile(rawRef)
	if err != nil {
		return fetch.Result{}, err
	}

	src, acct, err := s.resolve(ctx, profile)
	if err != nil {
		return fetch.Result{}, err
	}

	viewed, err := picker.LoadViewed(ctx, s.st, acct.ID)
	if err != nil {
		return fetch.Result{}, err
	}

	s.src = src
	s.account = acct
	s.viewed = viewed
	s.col = fetch.NewCollection(nil)

	res, err := s.walk(ctx, walkCfg, fetch.DirInitial, onMerge)
	if err != nil {
		return res, err
	}
	if s.col.Len() == 0 && !res.Stopped {
		return res, fmt.Errorf("%s: %w", acct.Handle(), ErrNoMatch)
	}
	return res, nil
}

// Continue extends the current collection older or newer. The session must
// hold an account, from Start, Load, or Import; a source is re-derived from
// the account handle when the session was loaded from cache.
func (s *Session) Continue(ctx context.Context, dir fetch.Direction, walkCfg fetch.Config, onMerge func(total int)) (fetch.Result, error) {
	if s.account.ID == "" {
		return fetch.Result{}, ErrNoSession
	}
	if err := s.ensureSource(ctx); err != nil {
		return fetch.Result{}, err
	}
	return s.walk(ctx, walkCfg, dir, onMerge)
}

// walk runs one controlled walk, enforcing the single-active-walk rule, and
// caches the merged collection afterwards. Cache failures are warnings: the
// fetched posts are still live in memory.
func (s *Session) walk(ctx context.Context, walkCfg fetch.Config, dir fetch.Direction, onMerge func(total int)) (fetch.Result, error) {
	if !s.fetching.CompareAndSwap(false, true) {
		return fetch.Result{}, ErrBusy
	}
	defer s.fetching.Store(false)

	ctrl := fetch.NewControl(s.cfg.Fetch.PollInterval.Duration)
	s.mu.Lock()
	s.ctrl = ctrl
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.ctrl = nil
		s.mu.Unlock()
	}()

	w := fetch.NewWalker(s.src, walkCfg, ctrl, onMerge)
	res, err := w.Walk(ctx, s.account.ID, s.col, dir)
	if cacheErr := s.saveCache(ctx); cacheErr != nil {
		s.Warnf("warning: caching %d posts: %v", s.col.Len(), cacheErr)
	}
	return res, err
}

// Pick draws one uniformly random unseen post matching the filter and marks
// it viewed. matching and unseen describe the pool after the draw.
func (s *Session) Pick(ctx context.Context, filter picker.DisplayFilter) (p *source.Post, matching, unseen int, err error) {
	if s.account.ID == "" {
		return nil, 0, 0, ErrNoSession
	}
	p, err = picker.Pick(ctx, s.col.Posts(), s.viewed, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	matching, unseen = picker.PoolSize(s.col.Posts(), s.viewed, filter)
	return p, matching, unseen, nil
}

// ResetViewed forgets the account's viewing progress, in memory and in the
// store.
func (s *Session) ResetViewed(ctx context.Context) error {
	if s.account.ID == "" {
		return ErrNoSession
	}
	return s.viewed.Clear(ctx)
}

// Export serializes the collection. With progress, the backup document
// carries the account and viewed ids as well; without, it is the plain
// status array a server would have returned.
func (s *Session) Export(includeProgress bool) ([]byte, error) {
	if s.account.ID == "" {
		return nil, ErrNoSession
	}
	if includeProgress {
		return snapshot.EncodeBackup(s.account, s.col.Posts(), s.viewed.IDs())
	}
	return snapshot.EncodeRaw(s.col.Posts())
}

// Import merges a decoded snapshot into the session and persists the
// result. A snapshot for a different account than the loaded one replaces
// the session; for the same account, posts are merged with duplicates by id
// skipped and viewed ids unioned. Returns how many posts were added.
func (s *Session) Import(ctx context.Context, data []byte) (added int, err error) {
	snap, err := snapshot.Decode(data)
	if err != nil {
		return 0, err
	}

	if s.account.ID != snap.Account.ID {
		viewed, err := picker.LoadViewed(ctx, s.st, snap.Account.ID)
		if err != nil {
			return 0, err
		}
		s.src = nil
		s.account = snap.Account
		s.viewed = viewed
		s.col = fetch.NewCollection(nil)
	}

	have := make(map[string]struct{}, s.col.Len())
	for _, p := range s.col.Posts() {
		have[p.ID] = struct{}{}
	}
	var fresh []source.Post
	for _, p := range snap.Posts {
		if _, ok := have[p.ID]; ok {
			continue
		}
		have[p.ID] = struct{}{}
		fresh = append(fresh, p)
	}
	if len(fresh) > 0 {
		merged := make([]source.Post, 0, s.col.Len()+len(fresh))
		merged = append(merged, s.col.Posts()...)
		merged = append(merged, fresh...)
		sort.Slice(merged, func(i, j int) bool {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		})
		s.col = fetch.NewCollection(merged)
	}

	if len(snap.ViewedIDs) > 0 {
		if err := s.viewed.MarkAll(ctx, snap.ViewedIDs); err != nil {
			return 0, err
		}
	}
	if err := s.saveCache(ctx); err != nil {
		return 0, fmt.Errorf("persist imported posts: %w", err)
	}
	return len(fresh), nil
}

// Load restores a previously cached session. ref selects the account by
// handle, username, or profile URL; empty ref works when exactly one
// account is cached.
func (s *Session) Load(ctx context.Context, ref string) error {
	acct, err := s.findCached(ctx, ref)
	if err != nil {
		return err
	}

	viewed, err := picker.LoadViewed(ctx, s.st, acct.ID)
	if err != nil {
		return err
	}

	var posts []source.Post
	raw, ok, err := s.st.Get(ctx, cacheKeyPrefix+acct.ID)
	if err != nil {
		return fmt.Errorf("read cached posts: %w", err)
	}
	if ok {
		if err := jsonCodec.UnmarshalFromString(raw, &posts); err != nil {
			return fmt.Errorf("decode cached posts: %w", err)
		}
	}

	s.src = nil
	s.account = acct
	s.viewed = viewed
	s.col = fetch.NewCollection(posts)
	return nil
}

// CachedAccounts lists every account with cached state, sorted by handle.
func CachedAccounts(ctx context.Context, st *store.Store) ([]source.Account, error) {
	keys, err := st.Keys(ctx, accountKeyPrefix)
	if err != nil {
		return nil, err
	}
	accounts := make([]source.Account, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := st.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var acct source.Account
		if err := jsonCodec.UnmarshalFromString(raw, &acct); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Handle() < accounts[j].Handle()
	})
	return accounts, nil
}

func (s *Session) findCached(ctx context.Context, ref string) (source.Account, error) {
	accounts, err := CachedAccounts(ctx, s.st)
	if err != nil {
		return source.Account{}, err
	}
	if len(accounts) == 0 {
		return source.Account{}, errors.New("nothing cached yet; fetch an account first")
	}

	if ref == "" {
		if len(accounts) == 1 {
			return accounts[0], nil
		}
		return source.Account{}, fmt.Errorf("%d accounts cached, name one", len(accounts))
	}

	want := ref
	if profile, err := source.ParseProfile(ref); err == nil {
		want = profile.Acct()
	}
	for _, acct := range accounts {
		if acct.Acct == want || acct.Username == want || acct.Handle() == "@"+want {
			return acct, nil
		}
	}
	return source.Account{}, fmt.Errorf("no cached state for %q", ref)
}

// resolveDialect builds the source for a profile, honoring a configured
// dialect or probing the server when the dialect is auto. Stubbed in tests.
var resolveDialect = func(ctx context.Context, dialect string, profile source.Profile) (source.Source, source.Account, error) {
	if dialect == "" || dialect == "auto" {
		return source.Detect(ctx, profile)
	}
	src, err := source.New(dialect, profile)
	if err != nil {
		return nil, source.Account{}, err
	}
	acct, err := src.Lookup(ctx)
	if err != nil {
		return nil, source.Account{}, err
	}
	return src, acct, nil
}

func (s *Session) resolve(ctx context.Context, profile source.Profile) (source.Source, source.Account, error) {
	return resolveDialect(ctx, s.cfg.Fetch.Dialect, profile)
}

// ensureSource re-derives a source from the account handle for sessions
// restored from cache, which carry no live source.
func (s *Session) ensureSource(ctx context.Context) error {
	if s.src != nil {
		return nil
	}
	profile, err := source.ParseProfile(s.account.Handle())
	if err != nil {
		return fmt.Errorf("derive profile from %s: %w", s.account.Handle(), err)
	}
	src, _, err := s.resolve(ctx, profile)
	if err != nil {
		return err
	}
	s.src = src
	return nil
}

// saveCache persists the collection and the account index entry.
func (s *Session) saveCache(ctx context.Context) error {
	posts, err := jsonCodec.MarshalToString(s.col.Posts())
	if err != nil {
		return err
	}
	if err := s.st.Set(ctx, cacheKeyPrefix+s.account.ID, posts); err != nil {
		return err
	}
	acct, err := jsonCodec.MarshalToString(s.account)
	if err != nil {
		return err
	}
	return s.st.Set(ctx, accountKeyPrefix+s.account.ID, acct)
}
