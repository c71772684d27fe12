package store

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"siteledger/internal/domain"
)

const (
	stateDir      = ".siteledger"
	projectsFile  = "projects.json"
	blogFile      = "blog.json"
	snapshotPerm  = 0o644
	workspacePerm = 0o755
)

var ErrNotFound = errors.New("not found")

// Store holds all project record sequences and blog posts in memory and
// mirrors them to JSON snapshot files on every mutation. The in-memory
// state is authoritative for the session; snapshot write failures are
// logged and swallowed.
type Store struct {
	mu       sync.Mutex
	dir      string
	projects map[string]domain.ProjectData
	posts    []domain.BlogPost
	log      *slog.Logger
}

// EnsureWorkspace creates the state directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	path := filepath.Join(workspace, stateDir)
	if err := os.MkdirAll(path, workspacePerm); err != nil {
		return "", err
	}
	return path, nil
}

// Open rehydrates a Store from the workspace snapshots. A missing or
// malformed snapshot falls back to seed data and never fails startup.
func Open(workspace string, logger *slog.Logger) (*Store, error) {
	dir, err := EnsureWorkspace(workspace)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{dir: dir, log: logger}
	s.projects = loadProjects(filepath.Join(dir, projectsFile), logger)
	s.posts = loadPosts(filepath.Join(dir, blogFile), logger)
	return s, nil
}

func loadProjects(path string, logger *slog.Logger) map[string]domain.ProjectData {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("read project snapshot", "path", path, "error", err)
		}
		return map[string]domain.ProjectData{}
	}
	var projects map[string]domain.ProjectData
	if err := json.Unmarshal(data, &projects); err != nil {
		logger.Warn("malformed project snapshot, starting from seed", "path", path, "error", err)
		return map[string]domain.ProjectData{}
	}
	if projects == nil {
		projects = map[string]domain.ProjectData{}
	}
	return projects
}

func loadPosts(path string, logger *slog.Logger) []domain.BlogPost {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("read blog snapshot", "path", path, "error", err)
		}
		return seedPosts()
	}
	var posts []domain.BlogPost
	if err := json.Unmarshal(data, &posts); err != nil {
		logger.Warn("malformed blog snapshot, starting from seed", "path", path, "error", err)
		return seedPosts()
	}
	if posts == nil {
		posts = []domain.BlogPost{}
	}
	return posts
}

func seedPosts() []domain.BlogPost {
	return []domain.BlogPost{{
		ID:      "welcome",
		Title:   "Breaking ground",
		Author:  "Site team",
		Date:    "2025-01-15",
		Status:  domain.BlogPublished,
		Excerpt: "First update from the build site.",
		Body:    "We **broke ground** this week. Updates to follow.",
		Tags:    []string{"construction"},
	}}
}

// GetProjectData returns the stored data for a project, or an empty
// default if none exists. It never fails and does not create state.
func (s *Store) GetProjectData(projectID string) domain.ProjectData {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd, ok := s.projects[projectID]
	if !ok {
		return domain.Empty()
	}
	return clone(pd)
}

// AllProjects returns a deep copy of every project's data keyed by id.
func (s *Store) AllProjects() map[string]domain.ProjectData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.ProjectData, len(s.projects))
	for id, pd := range s.projects {
		out[id] = clone(pd)
	}
	return out
}

// ProjectIDs returns the ids of all projects with stored data.
func (s *Store) ProjectIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	return ids
}

// ReplaceTasks replaces a project's task sequence and persists.
func (s *Store) ReplaceTasks(projectID string, tasks []domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := s.projects[projectID]
	pd.Tasks = tasks
	s.put(projectID, pd)
}

// ReplaceLabor replaces a project's labor sequence and persists.
func (s *Store) ReplaceLabor(projectID string, labor []domain.Labor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := s.projects[projectID]
	pd.Labor = labor
	s.put(projectID, pd)
}

// ReplaceMaterials replaces a project's material sequence and persists.
func (s *Store) ReplaceMaterials(projectID string, materials []domain.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := s.projects[projectID]
	pd.Materials = materials
	s.put(projectID, pd)
}

func (s *Store) put(projectID string, pd domain.ProjectData) {
	if s.projects == nil {
		s.projects = map[string]domain.ProjectData{}
	}
	if pd.Tasks == nil {
		pd.Tasks = []domain.Task{}
	}
	if pd.Labor == nil {
		pd.Labor = []domain.Labor{}
	}
	if pd.Materials == nil {
		pd.Materials = []domain.Material{}
	}
	s.projects[projectID] = pd
	s.persistProjects()
}

// Posts returns a copy of the blog post list.
func (s *Store) Posts() []domain.BlogPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BlogPost, len(s.posts))
	copy(out, s.posts)
	return out
}

// ReplacePosts replaces the blog post list and persists.
func (s *Store) ReplacePosts(posts []domain.BlogPost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if posts == nil {
		posts = []domain.BlogPost{}
	}
	s.posts = posts
	s.persistPosts()
}

// persistProjects rewrites the full project snapshot. Failures are
// logged, never surfaced: the session keeps running on memory.
func (s *Store) persistProjects() {
	s.writeSnapshot(projectsFile, s.projects)
}

func (s *Store) persistPosts() {
	s.writeSnapshot(blogFile, s.posts)
}

func (s *Store) writeSnapshot(name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.log.Error("marshal snapshot", "file", name, "error", err)
		return
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, snapshotPerm); err != nil {
		s.log.Error("write snapshot", "file", name, "error", err)
	}
}

func clone(pd domain.ProjectData) domain.ProjectData {
	out := domain.ProjectData{
		Tasks:     make([]domain.Task, len(pd.Tasks)),
		Labor:     make([]domain.Labor, len(pd.Labor)),
		Materials: make([]domain.Material, len(pd.Materials)),
	}
	copy(out.Tasks, pd.Tasks)
	copy(out.Labor, pd.Labor)
	copy(out.Materials, pd.Materials)
	return out
}
