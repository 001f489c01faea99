package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	misskeySourceName = "misskey"
	misskeyTimeout    = 30 * time.Second
)

// MisskeySource talks the Misskey REST dialect: POST endpoints with JSON
// bodies and untilId/sinceId cursors. Note ids use the sortable "aid"
// format, so the same cursor discipline as Mastodon applies.
type MisskeySource struct {
	profile Profile
	client  *http.Client
	baseURL string
}

// NewMisskey creates a Misskey source for one profile.
func NewMisskey(profile Profile) (*MisskeySource, error) {
	if profile.Domain == "" || profile.Username == "" {
		return nil, errors.New("misskey: domain and username are required")
	}
	return &MisskeySource{
		profile: profile,
		client:  &http.Client{Timeout: misskeyTimeout},
		baseURL: "https://" + profile.Domain,
	}, nil
}

func (ms *MisskeySource) Name() string {
	return misskeySourceName
}

func (ms *MisskeySource) Domain() string {
	return ms.profile.Domain
}

// misskeyUser is the users/show response shape.
type misskeyUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatarUrl"`
	Description string `json:"description"`
}

func (u misskeyUser) toAccount(domain string) Account {
	display := u.Name
	if display == "" {
		display = u.Username
	}
	return Account{
		ID:          u.ID,
		Username:    u.Username,
		Acct:        u.Username + "@" + domain,
		DisplayName: display,
		AvatarURL:   u.AvatarURL,
		ProfileURL:  fmt.Sprintf("https://%s/@%s", domain, u.Username),
		Bio:         u.Description,
	}
}

// Lookup resolves the username via POST /api/users/show.
func (ms *MisskeySource) Lookup(ctx context.Context) (Account, error) {
	u := ms.baseURL + "/api/users/show"

	var user misskeyUser
	err := ms.postJSON(ctx, u, map[string]any{"username": ms.profile.Username}, &user)
	if err != nil {
		return Account{}, err
	}
	if user.ID == "" {
		return Account{}, &FormatError{URL: u, Err: errors.New("user response has no id")}
	}
	return user.toAccount(ms.profile.Domain), nil
}

// misskeyFile is one attached drive file on a note.
type misskeyFile struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // MIME type
	URL     string `json:"url"`
	Comment string `json:"comment"`
}

// misskeyNote is the users/notes item shape.
type misskeyNote struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"createdAt"`
	Text         string        `json:"text"`
	User         misskeyUser   `json:"user"`
	ReplyID      string        `json:"replyId"`
	Renote       *misskeyNote  `json:"renote"`
	Files        []misskeyFile `json:"files"`
	RenoteCount  int64         `json:"renoteCount"`
	RepliesCount int64         `json:"repliesCount"`
}

// Page fetches one page of notes via POST /api/users/notes.
func (ms *MisskeySource) Page(ctx context.Context, accountID string, opts PageOpts) ([]Post, error) {
	if accountID == "" {
		return nil, errors.New("misskey: account id is required")
	}

	body := map[string]any{
		"userId":         accountID,
		"limit":          opts.Limit,
		"includeReplies": !opts.ExcludeReplies,
	}
	if opts.MaxID != "" {
		body["untilId"] = opts.MaxID
	}
	if opts.SinceID != "" {
		body["sinceId"] = opts.SinceID
	}
	if opts.ExcludeReblogs {
		body["includeMyRenotes"] = false
	}

	u := ms.baseURL + "/api/users/notes"
	var notes []misskeyNote
	if err := ms.postJSON(ctx, u, body, &notes); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(notes))
	for i := range notes {
		posts = append(posts, notes[i].toPost(ms.profile.Domain))
	}
	return posts, nil
}

func (n *misskeyNote) toPost(domain string) Post {
	p := Post{
		ID:           n.ID,
		CreatedAt:    n.CreatedAt,
		Account:      n.User.toAccount(domain),
		Content:      n.Text,
		URL:          fmt.Sprintf("https://%s/notes/%s", domain, n.ID),
		ReplyToID:    n.ReplyID,
		RepliesCount: n.RepliesCount,
		ReblogsCount: n.RenoteCount,
	}
	for _, f := range n.Files {
		p.Media = append(p.Media, Attachment{
			ID:          f.ID,
			Type:        mimeKind(f.Type),
			URL:         f.URL,
			Description: f.Comment,
		})
	}
	// A renote with no text of its own is a boost: the wrapper stays empty
	// and the renoted note becomes the nested original.
	if n.Renote != nil && n.Text == "" {
		inner := n.Renote.toPost(domain)
		p.Content = ""
		p.Reblog = &inner
	}
	return p
}

func mimeKind(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	default:
		return "other"
	}
}

func (ms *MisskeySource) postJSON(ctx context.Context, u string, body any, out any) error {
	payload, err := jsonAPI.Marshal(body)
	if err != nil {
		return &FormatError{URL: u, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{URL: u, Err: err}
	}
	req.Header.Set("User-Agent", mastodonUserAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ms.client.Do(req)
	if err != nil {
		return &TransportError{URL: u, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{URL: u, StatusCode: resp.StatusCode}
	}

	if err := jsonAPI.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FormatError{URL: u, Err: err}
	}
	return nil
}
