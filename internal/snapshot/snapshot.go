// Package snapshot encodes and decodes persisted session snapshots. Three
// shapes are understood: a raw status array, a backup document carrying
// viewing progress, and an ActivityPub outbox archive. The shape is
// resolved by inspecting discriminating fields, one explicit variant per
// shape, with an unrecognized-format error as the only other outcome.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/vertotem/Mastodon-Random-Picker/internal/source"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// BackupMarker discriminates the backup-with-progress document.
const BackupMarker = "mastodon-random-picker-backup"

// ErrUnrecognized reports a snapshot that matches none of the known
// shapes. An import that fails this way leaves prior session state intact.
var ErrUnrecognized = errors.New("unrecognized snapshot format")

// Snapshot is a decoded snapshot of any variant. ViewedIDs is nil when the
// source shape carries no progress.
type Snapshot struct {
	Account   source.Account
	Posts     []source.Post
	ViewedIDs []string
}

// backupDoc is the backup-with-progress wire shape.
type backupDoc struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Account   source.Account `json:"account"`
	Statuses  []source.Post  `json:"statuses"`
	ViewedIDs []string       `json:"viewedIds"`
}

// timeNow is stubbed in tests.
var timeNow = time.Now

// EncodeRaw writes the bare ordered status array variant.
func EncodeRaw(posts []source.Post) ([]byte, error) {
	if posts == nil {
		posts = []source.Post{}
	}
	data, err := jsonCodec.MarshalIndent(posts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode raw snapshot: %w", err)
	}
	return data, nil
}

// EncodeBackup writes the backup-with-progress variant.
func EncodeBackup(acct source.Account, posts []source.Post, viewedIDs []string) ([]byte, error) {
	if posts == nil {
		posts = []source.Post{}
	}
	if viewedIDs == nil {
		viewedIDs = []string{}
	}
	doc := backupDoc{
		Type:      BackupMarker,
		Timestamp: timeNow().UTC(),
		Account:   acct,
		Statuses:  posts,
		ViewedIDs: viewedIDs,
	}
	data, err := jsonCodec.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup snapshot: %w", err)
	}
	return data, nil
}

// Decode resolves the snapshot shape and decodes it. The account for a raw
// array is taken from the first status; an empty raw array is unrecognized
// since it identifies no account.
func Decode(data []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrUnrecognized
	}

	if trimmed[0] == '[' {
		return decodeRaw(trimmed)
	}
	if trimmed[0] != '{' {
		return nil, ErrUnrecognized
	}

	var probe struct {
		Type         string              `json:"type"`
		OrderedItems jsoniter.RawMessage `json:"orderedItems"`
	}
	if err := jsonCodec.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}

	switch {
	case probe.Type == BackupMarker:
		return decodeBackup(trimmed)
	case len(probe.OrderedItems) > 0:
		return decodeOutbox(trimmed)
	default:
		return nil, ErrUnrecognized
	}
}

func decodeRaw(data []byte) (*Snapshot, error) {
	var posts []source.Post
	if err := jsonCodec.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: empty status array", ErrUnrecognized)
	}
	for i := range posts {
		if posts[i].ID == "" {
			return nil, fmt.Errorf("%w: status %d has no id", ErrUnrecognized, i)
		}
	}
	return &Snapshot{Account: posts[0].Account, Posts: posts}, nil
}

func decodeBackup(data []byte) (*Snapshot, error) {
	var doc backupDoc
	if err := jsonCodec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}
	if doc.Account.ID == "" {
		return nil, fmt.Errorf("%w: backup has no account id", ErrUnrecognized)
	}
	viewed := doc.ViewedIDs
	if viewed == nil {
		viewed = []string{}
	}
	return &Snapshot{Account: doc.Account, Posts: doc.Statuses, ViewedIDs: viewed}, nil
}
