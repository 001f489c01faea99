package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func mastodonWithTransport(t *testing.T, rt roundTripFunc) *MastodonSource {
	t.Helper()
	ms, err := NewMastodon(Profile{Domain: "example.social", Username: "alice"})
	if err != nil {
		t.Fatalf("NewMastodon: %v", err)
	}
	ms.baseURL = "https://example.test"
	ms.client = &http.Client{Timeout: mastodonTimeout, Transport: rt}
	return ms
}

func TestNewMastodon_Invalid(t *testing.T) {
	if _, err := NewMastodon(Profile{}); err == nil {
		t.Fatal("expected error for empty profile")
	}
}

func TestMastodonLookup(t *testing.T) {
	ms := mastodonWithTransport(t, func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/api/v1/accounts/lookup") {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		if got := req.URL.Query().Get("acct"); got != "alice" {
			t.Errorf("acct = %q, want alice", got)
		}
		return response(200, `{"id":"42","username":"alice","acct":"alice","display_name":"Alice","url":"https://example.social/@alice"}`), nil
	})

	acct, err := ms.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if acct.ID != "42" {
		t.Errorf("id = %q, want 42", acct.ID)
	}
	if acct.Acct != "alice@example.social" {
		t.Errorf("acct = %q, want domain-qualified handle", acct.Acct)
	}
}

func TestMastodonLookup_NotFound(t *testing.T) {
	ms := mastodonWithTransport(t, func(*http.Request) (*http.Response, error) {
		return response(404, `{"error":"Record not found"}`), nil
	})

	_, err := ms.Lookup(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if te.StatusCode != 404 {
		t.Errorf("status = %d, want 404", te.StatusCode)
	}
}

func TestMastodonPage_CursorParams(t *testing.T) {
	var gotQuery map[string]string
	ms := mastodonWithTransport(t, func(req *http.Request) (*http.Response, error) {
		gotQuery = map[string]string{}
		for k, v := range req.URL.Query() {
			gotQuery[k] = v[0]
		}
		return response(200, `[]`), nil
	})

	_, err := ms.Page(context.Background(), "42", PageOpts{
		Limit:          40,
		MaxID:          "100",
		ExcludeReplies: true,
		ExcludeReblogs: true,
	})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}

	want := map[string]string{
		"limit":           "40",
		"max_id":          "100",
		"exclude_replies": "true",
		"exclude_reblogs": "true",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
	if _, ok := gotQuery["min_id"]; ok {
		t.Error("min_id must not be sent together with max_id")
	}
}

func TestMastodonPage_NewerUsesMinID(t *testing.T) {
	ms := mastodonWithTransport(t, func(req *http.Request) (*http.Response, error) {
		if got := req.URL.Query().Get("min_id"); got != "200" {
			t.Errorf("min_id = %q, want 200", got)
		}
		return response(200, `[]`), nil
	})

	if _, err := ms.Page(context.Background(), "42", PageOpts{Limit: 40, SinceID: "200"}); err != nil {
		t.Fatalf("Page: %v", err)
	}
}

func TestMastodonPage_DecodesStatuses(t *testing.T) {
	body := `[
		{"id":"103","created_at":"2023-05-01T10:00:00Z","content":"<p>hi</p>",
		 "account":{"id":"42","username":"alice","acct":"alice@example.social"},
		 "media_attachments":[{"id":"m1","type":"image","url":"https://example.social/m1.png","description":"a cat"}],
		 "replies_count":1,"reblogs_count":2,"favourites_count":3},
		{"id":"101","created_at":"2023-04-30T09:00:00Z","content":"",
		 "account":{"id":"42","username":"alice","acct":"alice@example.social"},
		 "reblog":{"id":"55","created_at":"2023-04-29T08:00:00Z","content":"<p>original</p>",
		           "account":{"id":"7","username":"bob","acct":"bob@other.tld"}}}
	]`
	ms := mastodonWithTransport(t, func(*http.Request) (*http.Response, error) {
		return response(200, body), nil
	})

	page, err := ms.Page(context.Background(), "42", PageOpts{Limit: 40})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len = %d, want 2", len(page))
	}

	first := page[0]
	if first.ID != "103" || first.Content != "<p>hi</p>" {
		t.Errorf("first post wrong: %+v", first)
	}
	if !first.CreatedAt.Equal(time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", first.CreatedAt)
	}
	if len(first.Media) != 1 || first.Media[0].Kind() != "image" {
		t.Errorf("media wrong: %+v", first.Media)
	}
	if first.FavoritesCount != 3 {
		t.Errorf("favourites = %d, want 3", first.FavoritesCount)
	}

	boost := page[1]
	if !boost.IsReblog() || boost.Effective().ID != "55" {
		t.Errorf("reblog wrong: %+v", boost)
	}
	if boost.Effective().Account.Acct != "bob@other.tld" {
		t.Errorf("original author wrong: %+v", boost.Effective().Account)
	}
}

func TestMastodonPage_FormatError(t *testing.T) {
	ms := mastodonWithTransport(t, func(*http.Request) (*http.Response, error) {
		return response(200, `{"not":"an array"}`), nil
	})

	_, err := ms.Page(context.Background(), "42", PageOpts{Limit: 40})
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FormatError", err)
	}
}

func TestMastodonPage_EmptyIsNotError(t *testing.T) {
	ms := mastodonWithTransport(t, func(*http.Request) (*http.Response, error) {
		return response(200, `[]`), nil
	})

	page, err := ms.Page(context.Background(), "42", PageOpts{Limit: 40})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("len = %d, want 0", len(page))
	}
}
