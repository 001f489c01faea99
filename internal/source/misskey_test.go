package source

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"
)

func misskeyWithTransport(t *testing.T, rt roundTripFunc) *MisskeySource {
	t.Helper()
	ms, err := NewMisskey(Profile{Domain: "misskey.test", Username: "alice"})
	if err != nil {
		t.Fatalf("NewMisskey: %v", err)
	}
	ms.client = &http.Client{Timeout: misskeyTimeout, Transport: rt}
	return ms
}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := jsonAPI.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestMisskeyLookup(t *testing.T) {
	ms := misskeyWithTransport(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != "/api/users/show" {
			t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		body := decodeBody(t, req)
		if body["username"] != "alice" {
			t.Errorf("username = %v, want alice", body["username"])
		}
		return response(200, `{"id":"9abc","username":"alice","name":"Alice","avatarUrl":"https://misskey.test/a.png","description":"hi"}`), nil
	})

	acct, err := ms.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if acct.ID != "9abc" || acct.Acct != "alice@misskey.test" {
		t.Errorf("account wrong: %+v", acct)
	}
	if acct.ProfileURL != "https://misskey.test/@alice" {
		t.Errorf("profile url = %q", acct.ProfileURL)
	}
}

func TestMisskeyPage_CursorBody(t *testing.T) {
	ms := misskeyWithTransport(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/users/notes" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		body := decodeBody(t, req)
		if body["userId"] != "9abc" {
			t.Errorf("userId = %v", body["userId"])
		}
		if body["untilId"] != "9cursor" {
			t.Errorf("untilId = %v", body["untilId"])
		}
		if body["includeReplies"] != false {
			t.Errorf("includeReplies = %v, want false", body["includeReplies"])
		}
		return response(200, `[]`), nil
	})

	_, err := ms.Page(context.Background(), "9abc", PageOpts{Limit: 40, MaxID: "9cursor", ExcludeReplies: true})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
}

func TestMisskeyPage_NoteMapping(t *testing.T) {
	body := `[
		{"id":"9b2","createdAt":"2023-05-01T10:00:00Z","text":"hello",
		 "user":{"id":"9abc","username":"alice"},
		 "files":[{"id":"f1","type":"image/png","url":"https://misskey.test/f1.png","comment":"pic"}],
		 "renoteCount":2,"repliesCount":1},
		{"id":"9b1","createdAt":"2023-04-30T09:00:00Z","text":"",
		 "user":{"id":"9abc","username":"alice"},
		 "renote":{"id":"9aa","createdAt":"2023-04-29T08:00:00Z","text":"original",
		           "user":{"id":"9zz","username":"bob"}}}
	]`
	ms := misskeyWithTransport(t, func(*http.Request) (*http.Response, error) {
		return response(200, body), nil
	})

	page, err := ms.Page(context.Background(), "9abc", PageOpts{Limit: 40})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len = %d, want 2", len(page))
	}

	note := page[0]
	if note.ID != "9b2" || note.Content != "hello" {
		t.Errorf("note wrong: %+v", note)
	}
	if !note.CreatedAt.Equal(time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("createdAt = %v", note.CreatedAt)
	}
	if len(note.Media) != 1 || note.Media[0].Kind() != "image" {
		t.Errorf("media wrong: %+v", note.Media)
	}
	if note.ReblogsCount != 2 {
		t.Errorf("renoteCount = %d", note.ReblogsCount)
	}

	renote := page[1]
	if !renote.IsReblog() {
		t.Fatalf("text-less renote should map to a reblog wrapper: %+v", renote)
	}
	if renote.Effective().ID != "9aa" || renote.Effective().Content != "original" {
		t.Errorf("nested original wrong: %+v", renote.Effective())
	}
	if renote.Effective().Account.Username != "bob" {
		t.Errorf("original author wrong: %+v", renote.Effective().Account)
	}
}

func TestMimeKind(t *testing.T) {
	tests := []struct{ in, want string }{
		{"image/png", "image"},
		{"video/mp4", "video"},
		{"audio/ogg", "other"},
		{"application/pdf", "other"},
	}
	for _, tt := range tests {
		if got := mimeKind(tt.in); got != tt.want {
			t.Errorf("mimeKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
