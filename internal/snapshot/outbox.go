package snapshot

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/vertotem/Mastodon-Random-Picker/internal/source"
)

// outboxDoc is the ActivityPub outbox archive shape (outbox.json inside a
// server-side account export).
type outboxDoc struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	OrderedItems []outboxItem `json:"orderedItems"`
}

type outboxItem struct {
	Type      string              `json:"type"`
	Actor     string              `json:"actor"`
	Published time.Time           `json:"published"`
	Object    jsoniter.RawMessage `json:"object"`
}

type outboxNote struct {
	ID           string             `json:"id"`
	Published    time.Time          `json:"published"`
	AttributedTo string             `json:"attributedTo"`
	InReplyTo    string             `json:"inReplyTo"`
	Content      string             `json:"content"`
	URL          string             `json:"url"`
	Attachment   []outboxAttachment `json:"attachment"`
}

type outboxAttachment struct {
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
	Name      string `json:"name"`
}

// decodeOutbox converts an outbox archive into the canonical record set.
// Only Create activities are recoverable: an Announce embeds just the
// boosted status URL, not its content, so boosts are dropped. The account
// carries no server-assigned id in an archive, so one is synthesized from
// the actor URL (stable across re-imports of the same archive).
func decodeOutbox(data []byte) (*Snapshot, error) {
	var doc outboxDoc
	if err := jsonCodec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}

	var (
		acct  source.Account
		posts []source.Post
	)
	for _, item := range doc.OrderedItems {
		if item.Type != "Create" || len(item.Object) == 0 || item.Object[0] != '{' {
			continue
		}
		var note outboxNote
		if err := jsonCodec.Unmarshal(item.Object, &note); err != nil {
			return nil, fmt.Errorf("%w: note object: %v", ErrUnrecognized, err)
		}

		if acct.ID == "" {
			actor := note.AttributedTo
			if actor == "" {
				actor = item.Actor
			}
			acct = accountFromActor(actor)
		}

		created := note.Published
		if created.IsZero() {
			created = item.Published
		}

		post := source.Post{
			ID:        lastPathSegment(note.ID),
			CreatedAt: created,
			Account:   acct,
			Content:   note.Content,
			URL:       note.URL,
			ReplyToID: lastPathSegment(note.InReplyTo),
		}
		for _, att := range note.Attachment {
			post.Media = append(post.Media, source.Attachment{
				Type:        kindFromMIME(att.MediaType),
				URL:         att.URL,
				Description: att.Name,
			})
		}
		posts = append(posts, post)
	}

	if acct.ID == "" || len(posts) == 0 {
		return nil, fmt.Errorf("%w: outbox contains no recoverable posts", ErrUnrecognized)
	}

	// Archives are ordered newest first already, matching the collection
	// convention; the account is attached to every post above.
	return &Snapshot{Account: acct, Posts: posts}, nil
}

// accountFromActor synthesizes an account record from an actor URL like
// https://example.social/users/alice. The id is a v5 uuid of the actor URL
// so the same archive always yields the same account id.
func accountFromActor(actor string) source.Account {
	acct := source.Account{
		ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(actor)).String(),
		ProfileURL: actor,
	}

	u, err := url.Parse(actor)
	if err != nil {
		return acct
	}
	username := lastPathSegment(u.Path)
	acct.Username = username
	acct.DisplayName = username
	if username != "" && u.Host != "" {
		acct.Acct = username + "@" + u.Host
	}
	return acct
}

func lastPathSegment(s string) string {
	s = strings.TrimSuffix(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func kindFromMIME(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	default:
		return "other"
	}
}
