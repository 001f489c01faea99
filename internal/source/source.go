// Package source fetches public posts from federated microblogging servers.
package source

import (
	"context"
	"fmt"
	"time"
)

// Account is a lightweight profile snapshot. The JSON shape mirrors the
// Mastodon API account entity so raw snapshots stay interchangeable with
// server responses.
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar"`
	ProfileURL  string `json:"url"`
	Bio         string `json:"note"`
}

// Handle returns the full @user@domain form when the acct carries a domain,
// otherwise just @user.
func (a Account) Handle() string {
	if a.Acct != "" {
		return "@" + a.Acct
	}
	return "@" + a.Username
}

// Attachment is one media item on a post.
type Attachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Kind normalizes the server's attachment type to image, video, or other.
func (m Attachment) Kind() string {
	switch m.Type {
	case "image":
		return "image"
	case "video", "gifv":
		return "video"
	default:
		return "other"
	}
}

// Post is the canonical post record, identical regardless of which dialect
// or import path produced it. JSON tags follow the Mastodon status entity.
type Post struct {
	ID             string       `json:"id"`
	CreatedAt      time.Time    `json:"created_at"`
	Account        Account      `json:"account"`
	Content        string       `json:"content"`
	URL            string       `json:"url,omitempty"`
	ReplyToID      string       `json:"in_reply_to_id,omitempty"`
	Reblog         *Post        `json:"reblog,omitempty"`
	Media          []Attachment `json:"media_attachments,omitempty"`
	RepliesCount   int64        `json:"replies_count"`
	ReblogsCount   int64        `json:"reblogs_count"`
	FavoritesCount int64        `json:"favourites_count"`
}

// IsReblog reports whether the post is a boost wrapper.
func (p *Post) IsReblog() bool {
	return p.Reblog != nil
}

// Effective returns the post whose fields are authoritative for display and
// filtering: the boosted original for a reblog, the post itself otherwise.
func (p *Post) Effective() *Post {
	if p.Reblog != nil {
		return p.Reblog
	}
	return p
}

// IsReply reports whether the effective record is a reply.
func (p *Post) IsReply() bool {
	return p.Effective().ReplyToID != ""
}

// PageOpts parameterizes one page request. At most one of MaxID/SinceID may
// be set; both empty means the first page.
type PageOpts struct {
	MaxID          string // items strictly older than this id
	SinceID        string // items strictly newer than this id
	Limit          int
	ExcludeReplies bool
	ExcludeReblogs bool
}

// Source is one remote server dialect. An empty page from Page is the only
// reliable end-of-collection signal and is not an error.
type Source interface {
	// Name returns the dialect identifier (e.g. "mastodon").
	Name() string

	// Domain returns the server the source talks to.
	Domain() string

	// Lookup resolves the configured username to its account record.
	Lookup(ctx context.Context) (Account, error)

	// Page fetches one page of the account's public posts, newest first.
	Page(ctx context.Context, accountID string, opts PageOpts) ([]Post, error)
}

// TransportError reports a failed HTTP exchange (network error or non-2xx).
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FormatError reports a response body that is not the expected shape.
type FormatError struct {
	URL string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
