package blog

import (
	"errors"
	"fmt"
	"testing"

	"siteledger/internal/domain"
	"siteledger/internal/store"
	"siteledger/internal/workspace"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	m := New(s)
	n := 0
	m.NewID = func() string {
		n++
		return fmt.Sprintf("post-%d", n)
	}
	return m
}

func TestSaveAndList(t *testing.T) {
	m := newTestManager(t)
	saved, err := m.Save(workspace.RoleAdmin, domain.BlogPost{Title: "Roof is on", Body: "The **roof** is on."})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" || saved.Status != domain.BlogDraft {
		t.Fatalf("defaults not applied: %+v", saved)
	}
	all := m.List(false)
	if len(all) != 2 { // seed post plus the new draft
		t.Fatalf("list all = %d posts, want 2", len(all))
	}
	published := m.List(true)
	if len(published) != 1 || published[0].ID != "welcome" {
		t.Fatalf("published filter mismatch: %+v", published)
	}
}

func TestSaveValidation(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Save(workspace.RoleAdmin, domain.BlogPost{}); err == nil {
		t.Fatalf("title is required")
	}
	if _, err := m.Save(workspace.RoleAdmin, domain.BlogPost{Title: "x", Status: "Archived"}); err == nil {
		t.Fatalf("invalid status must fail")
	}
	if _, err := m.Save(workspace.RoleAdmin, domain.BlogPost{ID: "ghost", Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: %v", err)
	}
	var fe workspace.ForbiddenError
	if _, err := m.Save(workspace.RoleInvestor, domain.BlogPost{Title: "x"}); !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	m := newTestManager(t)
	saved, err := m.Save(workspace.RoleAdmin, domain.BlogPost{Title: "v1"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	saved.Title = "v2"
	saved.Status = domain.BlogPublished
	updated, err := m.Save(workspace.RoleAdmin, saved)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != saved.ID {
		t.Fatalf("update must keep id")
	}
	got, err := m.Get(saved.ID)
	if err != nil || got.Title != "v2" {
		t.Fatalf("get after update: %+v %v", got, err)
	}
	if err := m.Delete(workspace.RoleAdmin, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := m.Delete(workspace.RoleAdmin, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestRenderBody(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"a **bold** word", "a <strong>bold</strong> word"},
		{"**two** and **three**", "<strong>two</strong> and <strong>three</strong>"},
		{"unmatched **tail", "unmatched **tail"},
		{"<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"**<b>**", "<strong>&lt;b&gt;</strong>"},
	}
	for _, c := range cases {
		if got := RenderBody(c.in); got != c.want {
			t.Errorf("RenderBody(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
