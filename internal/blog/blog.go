// Package blog manages the portal's blog posts over their own
// snapshot, independent of project data.
package blog

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"siteledger/internal/domain"
	"siteledger/internal/store"
	"siteledger/internal/workspace"
)

var ErrNotFound = errors.New("not found")

// Manager drives blog post CRUD, gated by role like the workspace.
type Manager struct {
	Store *store.Store
	NewID func() string
}

// New returns a Manager over the given store.
func New(s *store.Store) *Manager {
	return &Manager{Store: s, NewID: func() string { return uuid.NewString() }}
}

// List returns posts, optionally restricted to Published.
func (m *Manager) List(publishedOnly bool) []domain.BlogPost {
	posts := m.Store.Posts()
	if !publishedOnly {
		return posts
	}
	out := make([]domain.BlogPost, 0, len(posts))
	for _, p := range posts {
		if p.Status == domain.BlogPublished {
			out = append(out, p)
		}
	}
	return out
}

// Get returns one post by id.
func (m *Manager) Get(id string) (domain.BlogPost, error) {
	for _, p := range m.Store.Posts() {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.BlogPost{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
}

// Save commits a post edit buffer: empty id appends with a generated
// id, a populated id replaces the match or returns ErrNotFound.
func (m *Manager) Save(role string, p domain.BlogPost) (domain.BlogPost, error) {
	if err := workspace.RequireAdmin(role, "blog save"); err != nil {
		return domain.BlogPost{}, err
	}
	if p.Title == "" {
		return domain.BlogPost{}, fmt.Errorf("post title is required")
	}
	if p.Status == "" {
		p.Status = domain.BlogDraft
	}
	if p.Status != domain.BlogPublished && p.Status != domain.BlogDraft {
		return domain.BlogPost{}, fmt.Errorf("invalid post status %s", p.Status)
	}
	posts := m.Store.Posts()
	if p.ID == "" {
		p.ID = m.NewID()
		posts = append(posts, p)
	} else {
		idx := -1
		for i := range posts {
			if posts[i].ID == p.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.BlogPost{}, fmt.Errorf("post %s: %w", p.ID, ErrNotFound)
		}
		posts[idx] = p
	}
	m.Store.ReplacePosts(posts)
	return p, nil
}

// Delete removes one post by id.
func (m *Manager) Delete(role, id string) error {
	if err := workspace.RequireAdmin(role, "blog delete"); err != nil {
		return err
	}
	posts := m.Store.Posts()
	for i := range posts {
		if posts[i].ID == id {
			m.Store.ReplacePosts(append(posts[:i], posts[i+1:]...))
			return nil
		}
	}
	return fmt.Errorf("post %s: %w", id, ErrNotFound)
}

// RenderBody renders a post body to HTML. The body is plain text with
// a single restricted markup convention: **text** becomes <strong>.
// Everything else is escaped.
func RenderBody(body string) string {
	var b strings.Builder
	parts := strings.Split(body, "**")
	for i, part := range parts {
		escaped := html.EscapeString(part)
		// Odd segments sit between a pair of markers. An unmatched
		// trailing marker renders literally.
		if i%2 == 1 && i < len(parts)-1 {
			b.WriteString("<strong>")
			b.WriteString(escaped)
			b.WriteString("</strong>")
		} else if i%2 == 1 {
			b.WriteString("**")
			b.WriteString(escaped)
		} else {
			b.WriteString(escaped)
		}
	}
	return b.String()
}
