// Package fetch drives cursor-paginated walks over a remote post collection.
package fetch

import "github.com/vertotem/Mastodon-Random-Picker/internal/source"

// Collection is the in-memory ordered post collection for one account.
// Pages arrive newest-first; older/initial walks append, catch-up walks
// prepend. No merge-time dedup is done: the walker's cursor discipline
// guarantees non-overlapping pages, and importers of external data are
// responsible for their own de-duplication.
type Collection struct {
	posts []source.Post
}

// NewCollection creates a collection seeded with the given posts.
func NewCollection(posts []source.Post) *Collection {
	return &Collection{posts: posts}
}

// Append merges a page at the old end of the collection.
func (c *Collection) Append(page []source.Post) {
	c.posts = append(c.posts, page...)
}

// Prepend merges a page at the new end of the collection.
func (c *Collection) Prepend(page []source.Post) {
	if len(page) == 0 {
		return
	}
	merged := make([]source.Post, 0, len(page)+len(c.posts))
	merged = append(merged, page...)
	merged = append(merged, c.posts...)
	c.posts = merged
}

// Len returns the number of posts held.
func (c *Collection) Len() int {
	return len(c.posts)
}

// Posts returns the backing slice. Callers must not reorder it.
func (c *Collection) Posts() []source.Post {
	return c.posts
}

// NewestID returns the id of the first (newest) post, or "".
func (c *Collection) NewestID() string {
	if len(c.posts) == 0 {
		return ""
	}
	return c.posts[0].ID
}

// OldestID returns the id of the last (oldest) post, or "".
func (c *Collection) OldestID() string {
	if len(c.posts) == 0 {
		return ""
	}
	return c.posts[len(c.posts)-1].ID
}
