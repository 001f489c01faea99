package source

import "testing"

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Profile
		wantErr bool
	}{
		{name: "at URL", in: "https://example.social/@gargron", want: Profile{Domain: "example.social", Username: "gargron"}},
		{name: "users URL", in: "https://example.social/users/gargron", want: Profile{Domain: "example.social", Username: "gargron"}},
		{name: "trailing slash", in: "https://example.social/@gargron/", want: Profile{Domain: "example.social", Username: "gargron"}},
		{name: "bare handle", in: "gargron@example.social", want: Profile{Domain: "example.social", Username: "gargron"}},
		{name: "at handle", in: "@gargron@example.social", want: Profile{Domain: "example.social", Username: "gargron"}},
		{name: "remote follow URL", in: "https://other.tld/@gargron@example.social", want: Profile{Domain: "example.social", Username: "gargron"}},
		{name: "empty", in: "", wantErr: true},
		{name: "no username", in: "https://example.social/@", wantErr: true},
		{name: "wrong path", in: "https://example.social/about", wantErr: true},
		{name: "wrong scheme", in: "ftp://example.social/@gargron", wantErr: true},
		{name: "handle without domain", in: "@gargron", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfile(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseProfile(%q) = %+v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProfile(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseProfile(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAccountHandle(t *testing.T) {
	a := Account{Username: "alice", Acct: "alice@example.social"}
	if got := a.Handle(); got != "@alice@example.social" {
		t.Errorf("Handle() = %q", got)
	}

	local := Account{Username: "alice"}
	if got := local.Handle(); got != "@alice" {
		t.Errorf("Handle() = %q", got)
	}
}

func TestPostEffective(t *testing.T) {
	orig := &Post{ID: "1", ReplyToID: "0"}
	boost := &Post{ID: "2", Reblog: orig}

	if boost.Effective() != orig {
		t.Error("Effective() of a reblog should be the nested original")
	}
	if !boost.IsReply() {
		t.Error("IsReply() should follow the effective record")
	}
	if !boost.IsReblog() || orig.IsReblog() {
		t.Error("IsReblog() wrong")
	}
	if orig.Effective() != orig {
		t.Error("Effective() of a plain post should be itself")
	}
}

func TestAttachmentKind(t *testing.T) {
	tests := []struct{ in, want string }{
		{"image", "image"},
		{"video", "video"},
		{"gifv", "video"},
		{"audio", "other"},
		{"unknown", "other"},
	}
	for _, tt := range tests {
		if got := (Attachment{Type: tt.in}).Kind(); got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
