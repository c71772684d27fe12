package store

import (
	"os"
	"path/filepath"
	"testing"

	"siteledger/internal/domain"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.ReplaceTasks("villa-alpha", []domain.Task{{ID: "t1", ProjectID: "villa-alpha", Name: "Pour slab", Status: "Pending", Cost: 1200}})
	s.ReplaceMaterials("villa-alpha", []domain.Material{{ID: "m1", ProjectID: "villa-alpha", Item: "Cement", Qty: 10, UnitCost: 50, TotalCost: 500}})

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	pd := reopened.GetProjectData("villa-alpha")
	if len(pd.Tasks) != 1 || pd.Tasks[0].Name != "Pour slab" {
		t.Fatalf("tasks not persisted: %+v", pd.Tasks)
	}
	if len(pd.Materials) != 1 || pd.Materials[0].TotalCost != 500 {
		t.Fatalf("materials not persisted: %+v", pd.Materials)
	}
}

func TestGetProjectDataDefault(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	pd := s.GetProjectData("nothing-here")
	if pd.Tasks == nil || pd.Labor == nil || pd.Materials == nil {
		t.Fatalf("expected non-nil empty sequences, got %+v", pd)
	}
	if len(pd.Tasks)+len(pd.Labor)+len(pd.Materials) != 0 {
		t.Fatalf("expected empty data, got %+v", pd)
	}
	if len(s.ProjectIDs()) != 0 {
		t.Fatalf("read must not create project state")
	}
}

func TestMalformedSnapshotFallsBack(t *testing.T) {
	dir := t.TempDir()
	state, err := EnsureWorkspace(dir)
	if err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	if err := os.WriteFile(filepath.Join(state, projectsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if err := os.WriteFile(filepath.Join(state, blogFile), []byte("[broken"), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if len(s.ProjectIDs()) != 0 {
		t.Fatalf("expected empty projects after malformed snapshot")
	}
	posts := s.Posts()
	if len(posts) != 1 || posts[0].ID != "welcome" {
		t.Fatalf("expected seed post, got %+v", posts)
	}
}

func TestCloneIsolation(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.ReplaceTasks("p", []domain.Task{{ID: "t1", Name: "a"}})
	pd := s.GetProjectData("p")
	pd.Tasks[0].Name = "mutated"
	if got := s.GetProjectData("p").Tasks[0].Name; got != "a" {
		t.Fatalf("store state leaked through returned copy: %s", got)
	}
}
