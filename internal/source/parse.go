package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Profile is a parsed profile reference: the server and the local username.
type Profile struct {
	Domain   string
	Username string
}

// Acct returns the user@domain handle for the profile.
func (p Profile) Acct() string {
	return p.Username + "@" + p.Domain
}

// ParseProfile resolves a user-supplied profile reference. Accepted shapes:
//
//	https://<domain>/@<username>
//	https://<domain>/users/<username>
//	@<username>@<domain>
//	<username>@<domain>
func ParseProfile(raw string) (Profile, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Profile{}, errors.New("profile reference is required")
	}

	if !strings.Contains(raw, "/") {
		return parseHandle(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Profile{}, fmt.Errorf("parse profile URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Profile{}, fmt.Errorf("profile URL %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return Profile{}, fmt.Errorf("profile URL %q: missing host", raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) == 1 && strings.HasPrefix(segments[0], "@"):
		name := strings.TrimPrefix(segments[0], "@")
		// Remote-follow style /@user@otherdomain pages point at the
		// user's home server, not the one in the host part.
		if at := strings.Index(name, "@"); at >= 0 {
			return parseHandle(name)
		}
		if name == "" {
			return Profile{}, fmt.Errorf("profile URL %q: empty username", raw)
		}
		return Profile{Domain: u.Host, Username: name}, nil
	case len(segments) == 2 && segments[0] == "users" && segments[1] != "":
		return Profile{Domain: u.Host, Username: segments[1]}, nil
	default:
		return Profile{}, fmt.Errorf("profile URL %q: expected /@<user> or /users/<user>", raw)
	}
}

func parseHandle(raw string) (Profile, error) {
	h := strings.TrimPrefix(raw, "@")
	user, domain, ok := strings.Cut(h, "@")
	if !ok || user == "" || domain == "" {
		return Profile{}, fmt.Errorf("handle %q: expected user@domain", raw)
	}
	return Profile{Domain: domain, Username: user}, nil
}
