// Package render formats posts for terminal and JSON output.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"

	"github.com/vertotem/Mastodon-Random-Picker/internal/privacy"
	"github.com/vertotem/Mastodon-Random-Picker/internal/source"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// HTMLToText flattens a post's HTML content fragment to plain text.
// Paragraphs become blank-line separated blocks and <br> becomes a line
// break; everything else is reduced to its text. Content that is not HTML
// passes through unchanged.
func HTMLToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	doc.Find("br").ReplaceWithHtml("\n")

	paras := doc.Find("p")
	if paras.Length() > 0 {
		parts := make([]string, 0, paras.Length())
		paras.Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		return strings.Join(parts, "\n\n")
	}

	return strings.TrimSpace(doc.Text())
}

// Formatter writes posts for the terminal.
type Formatter struct {
	color  bool
	redact *privacy.Redactor
}

// NewFormatter creates a terminal formatter. Set color=true for ANSI
// colors. redact, if non-nil, is applied to post text before display.
func NewFormatter(color bool, redact *privacy.Redactor) *Formatter {
	return &Formatter{color: color, redact: redact}
}

// Post writes one sampled post. unseen/matching is the remaining pool, for
// progress display.
func (f *Formatter) Post(w io.Writer, p *source.Post, unseen, matching int) {
	eff := p.Effective()

	header := fmt.Sprintf("%s %s", displayName(eff.Account), f.dim(eff.Account.Handle()))
	fmt.Fprintln(w, f.bold(header))
	if p.IsReblog() {
		fmt.Fprintln(w, f.dim(fmt.Sprintf("boosted by %s", displayName(p.Account))))
	}
	fmt.Fprintln(w, f.dim(humanize.Time(eff.CreatedAt)))
	fmt.Fprintln(w)

	if text := HTMLToText(eff.Content); text != "" {
		fmt.Fprintln(w, f.redact.Apply(text))
	}

	for _, m := range eff.Media {
		desc := f.redact.Apply(m.Description)
		if desc == "" {
			desc = "no description"
		}
		fmt.Fprintf(w, "  [%s] %s — %s\n", m.Kind(), m.URL, f.dim(desc))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s  %s replies · %s boosts · %s favorites\n",
		f.dim(eff.URL),
		humanize.Comma(eff.RepliesCount),
		humanize.Comma(eff.ReblogsCount),
		humanize.Comma(eff.FavoritesCount))
	fmt.Fprintln(w, f.dim(fmt.Sprintf("%d of %d unseen posts left", unseen, matching)))
}

// JSON writes the raw canonical record.
func (f *Formatter) JSON(w io.Writer, p *source.Post) error {
	enc := jsonCodec.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func displayName(a source.Account) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

func (f *Formatter) bold(s string) string {
	if !f.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func (f *Formatter) dim(s string) string {
	if !f.color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}
