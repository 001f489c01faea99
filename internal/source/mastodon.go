package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	mastodonSourceName = "mastodon"
	mastodonTimeout    = 30 * time.Second
	mastodonUserAgent  = "tootpick/1.0 (+https://github.com/vertotem/Mastodon-Random-Picker)"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// MastodonSource talks the Mastodon REST dialect (also spoken by Pleroma
// and compatible servers).
type MastodonSource struct {
	profile Profile
	client  *http.Client
	baseURL string
}

// NewMastodon creates a Mastodon source for one profile.
func NewMastodon(profile Profile) (*MastodonSource, error) {
	if profile.Domain == "" || profile.Username == "" {
		return nil, errors.New("mastodon: domain and username are required")
	}
	return &MastodonSource{
		profile: profile,
		client:  &http.Client{Timeout: mastodonTimeout},
		baseURL: "https://" + profile.Domain,
	}, nil
}

func (ms *MastodonSource) Name() string {
	return mastodonSourceName
}

func (ms *MastodonSource) Domain() string {
	return ms.profile.Domain
}

// Lookup resolves the username via /api/v1/accounts/lookup.
func (ms *MastodonSource) Lookup(ctx context.Context) (Account, error) {
	u := fmt.Sprintf("%s/api/v1/accounts/lookup?acct=%s", ms.baseURL, url.QueryEscape(ms.profile.Username))

	var acct Account
	if err := ms.getJSON(ctx, u, &acct); err != nil {
		return Account{}, err
	}
	if acct.ID == "" {
		return Account{}, &FormatError{URL: u, Err: errors.New("account response has no id")}
	}
	if !strings.Contains(acct.Acct, "@") {
		acct.Acct = acct.Username + "@" + ms.profile.Domain
	}
	return acct, nil
}

// Page fetches one page of statuses via /api/v1/accounts/<id>/statuses.
func (ms *MastodonSource) Page(ctx context.Context, accountID string, opts PageOpts) ([]Post, error) {
	if accountID == "" {
		return nil, errors.New("mastodon: account id is required")
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.MaxID != "" {
		q.Set("max_id", opts.MaxID)
	}
	if opts.SinceID != "" {
		q.Set("min_id", opts.SinceID)
	}
	if opts.ExcludeReplies {
		q.Set("exclude_replies", "true")
	}
	if opts.ExcludeReblogs {
		q.Set("exclude_reblogs", "true")
	}

	u := fmt.Sprintf("%s/api/v1/accounts/%s/statuses?%s", ms.baseURL, url.PathEscape(accountID), q.Encode())

	// Statuses decode directly into the canonical record: the JSON tags on
	// Post mirror the status entity.
	var page []Post
	if err := ms.getJSON(ctx, u, &page); err != nil {
		return nil, err
	}
	return page, nil
}

func (ms *MastodonSource) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{URL: u, Err: err}
	}
	req.Header.Set("User-Agent", mastodonUserAgent)
	req.Header.Set("Accept", "application/json")

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
