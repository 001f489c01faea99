package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// New creates a source for a named dialect. Empty name means auto-detect is
// wanted; use Detect instead.
func New(dialect string, profile Profile) (Source, error) {
	switch dialect {
	case mastodonSourceName:
		return NewMastodon(profile)
	case misskeySourceName:
		return NewMisskey(profile)
	case rssSourceName:
		return NewRSS(profile)
	default:
		return nil, fmt.Errorf("unknown dialect %q (want mastodon, misskey, or rss)", dialect)
	}
}

// Detect probes the server's dialect by attempting a Mastodon lookup first
// and falling back to Misskey when the endpoint is missing or answers with
// a shape the Mastodon decoder rejects. Returns the source together with
// the resolved account so the successful lookup is not repeated.
func Detect(ctx context.Context, profile Profile) (Source, Account, error) {
	ms, err := NewMastodon(profile)
	if err != nil {
		return nil, Account{}, err
	}
	acct, merr := ms.Lookup(ctx)
	if merr == nil {
		return ms, acct, nil
	}
	if !dialectMismatch(merr) {
		return nil, Account{}, merr
	}

	mk, err := NewMisskey(profile)
	if err != nil {
		return nil, Account{}, err
	}
	acct, kerr := mk.Lookup(ctx)
	if kerr == nil {
		return mk, acct, nil
	}

	return nil, Account{}, fmt.Errorf("detect dialect for %s: mastodon: %w; misskey: %v", profile.Acct(), merr, kerr)
}

// dialectMismatch reports whether an error plausibly means "wrong dialect"
// rather than a real failure worth surfacing as-is.
func dialectMismatch(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		switch te.StatusCode {
		case http.StatusNotFound, http.StatusNotImplemented, http.StatusUnprocessableEntity:
			return true
		}
		return false
	}
	var fe *FormatError
	return errors.As(err, &fe)
}
