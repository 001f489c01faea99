package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	rssSourceName   = "rss"
	rssFetchTimeout = 30 * time.Second
	rssUserAgent    = "tootpick/1.0 (+https://github.com/vertotem/Mastodon-Random-Picker)"
)

// RSSSource reads a Mastodon account's public RSS feed
// (https://<domain>/@<user>.rss). The feed is a single fixed window of the
// newest posts with no pagination cursor, so it only serves as a fallback
// for servers that refuse unauthenticated API access: the first Page call
// returns the whole window and every cursored call reports end-of-collection.
type RSSSource struct {
	profile Profile
	feedURL string
	parser  *gofeed.Parser
}

// NewRSS creates an RSS fallback source for one profile.
func NewRSS(profile Profile) (*RSSSource, error) {
	if profile.Domain == "" || profile.Username == "" {
		return nil, errors.New("rss: domain and username are required")
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{
		Timeout:   rssFetchTimeout,
		Transport: &rssTransport{base: http.DefaultTransport},
	}

	return &RSSSource{
		profile: profile,
		feedURL: fmt.Sprintf("https://%s/@%s.rss", profile.Domain, profile.Username),
		parser:  parser,
	}, nil
}

func (rs *RSSSource) Name() string {
	return rssSourceName
}

func (rs *RSSSource) Domain() string {
	return rs.profile.Domain
}

// Lookup builds the account record from the feed's channel metadata. RSS
// carries no server-assigned account id, so the acct handle stands in.
func (rs *RSSSource) Lookup(ctx context.Context) (Account, error) {
	feed, err := rs.fetch(ctx)
	if err != nil {
		return Account{}, err
	}

	acct := Account{
		ID:          rs.profile.Acct(),
		Username:    rs.profile.Username,
		Acct:        rs.profile.Acct(),
		DisplayName: rs.profile.Username,
		ProfileURL:  fmt.Sprintf("https://%s/@%s", rs.profile.Domain, rs.profile.Username),
		Bio:         feed.Description,
	}
	if feed.Title != "" {
		acct.DisplayName = feed.Title
	}
	if feed.Image != nil {
		acct.AvatarURL = feed.Image.URL
	}
	return acct, nil
}

// Page returns the feed window on the first call and an empty page for any
// cursored call.
func (rs *RSSSource) Page(ctx context.Context, accountID string, opts PageOpts) ([]Post, error) {
	if opts.MaxID != "" || opts.SinceID != "" {
		return nil, nil
	}

	feed, err := rs.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var posts []Post
	for _, item := range feed.Items {
		if item.PublishedParsed == nil {
			continue
		}
		posts = append(posts, Post{
			ID:        rssItemID(item),
			CreatedAt: *item.PublishedParsed,
			Account: Account{
				ID:       rs.profile.Acct(),
				Username: rs.profile.Username,
				Acct:     rs.profile.Acct(),
			},
			Content: item.Description,
			URL:     item.Link,
		})
	}
	return posts, nil
}

func (rs *RSSSource) fetch(ctx context.Context) (*gofeed.Feed, error) {
	feed, err := rs.parser.ParseURLWithContext(rs.feedURL, ctx)
	if err != nil {
		var herr gofeed.HTTPError
		if errors.As(err, &herr) {
			return nil, &TransportError{URL: rs.feedURL, StatusCode: herr.StatusCode}
		}
		return nil, &TransportError{URL: rs.feedURL, Err: err}
	}
	return feed, nil
}

// rssItemID extracts the status id from the item GUID (a status URL on
// Mastodon feeds), falling back to the GUID itself.
func rssItemID(item *gofeed.Item) string {
	guid := item.GUID
	if guid == "" {
		guid = item.Link
	}
	if i := strings.LastIndex(guid, "/"); i >= 0 && i+1 < len(guid) {
		return guid[i+1:]
	}
	return guid
}

// rssTransport injects a User-Agent header into every request.
type rssTransport struct {
	base http.RoundTripper
}

func (t *rssTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", rssUserAgent)
	return t.base.RoundTrip(req)
}
