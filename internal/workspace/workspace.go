package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"siteledger/internal/blob"
	"siteledger/internal/domain"
	"siteledger/internal/store"
)

var ErrNotFound = errors.New("not found")

// Engine drives the project-item workspace: add/save/delete/toggle over
// the record store, gated by role. It owns the two-phase delete arm
// state; records themselves are owned by the store.
type Engine struct {
	Store *store.Store
	Blobs blob.Store
	Log   *slog.Logger
	NewID func() string

	mu    sync.Mutex
	armed map[armKey]string
}

type armKey struct {
	project string
	kind    string
}

// New returns an Engine over the given store and blob store.
func New(s *store.Store, blobs blob.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Store: s,
		Blobs: blobs,
		Log:   logger,
		NewID: func() string { return uuid.NewString() },
		armed: map[armKey]string{},
	}
}

// NewTask returns the add-buffer defaults for a task.
func NewTask(projectID string) domain.Task {
	return domain.Task{
		ProjectID: projectID,
		Status:    domain.StatusPending,
		Category:  "Design",
	}
}

// NewLabor returns the add-buffer defaults for a labor entry.
func NewLabor(projectID string) domain.Labor {
	return domain.Labor{
		ProjectID: projectID,
		RateType:  domain.RateDaily,
		Qty:       8,
		Rate:      62.5,
		Cost:      500,
	}
}

// NewMaterial returns the add-buffer defaults for a material entry.
func NewMaterial(projectID string) domain.Material {
	return domain.Material{
		ProjectID: projectID,
		Category:  "Other",
		Qty:       1,
	}
}

// SaveTask commits an edit buffer. An empty id appends a new record
// with a generated id; a populated id replaces the matching record or
// returns ErrNotFound when no record matches.
func (e *Engine) SaveTask(role, projectID string, t domain.Task) (domain.Task, error) {
	if err := requireAdmin(role, "task save"); err != nil {
		return domain.Task{}, err
	}
	if t.Name == "" {
		return domain.Task{}, fmt.Errorf("task name is required")
	}
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	if !domain.ValidTaskStatus(t.Status) {
		return domain.Task{}, fmt.Errorf("invalid task status %s", t.Status)
	}
	if t.Category != "" && !domain.ValidTaskCategory(t.Category) {
		return domain.Task{}, fmt.Errorf("invalid task category %s", t.Category)
	}
	t.ProjectID = projectID
	pd := e.Store.GetProjectData(projectID)
	if t.ID == "" {
		t.ID = e.NewID()
		pd.Tasks = append(pd.Tasks, t)
	} else {
		idx := taskIndex(pd.Tasks, t.ID)
		if idx < 0 {
			return domain.Task{}, fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
		}
		pd.Tasks[idx] = t
	}
	e.Store.ReplaceTasks(projectID, pd.Tasks)
	return t, nil
}

// SaveLabor commits a labor edit buffer. Cost is recomputed from qty
// and rate, never trusted from the buffer.
func (e *Engine) SaveLabor(role, projectID string, l domain.Labor) (domain.Labor, error) {
	if err := requireAdmin(role, "labor save"); err != nil {
		return domain.Labor{}, err
	}
	if l.Role == "" {
		return domain.Labor{}, fmt.Errorf("labor role is required")
	}
	if l.RateType == "" {
		l.RateType = domain.RateDaily
	}
	if l.RateType != domain.RateHourly && l.RateType != domain.RateDaily {
		return domain.Labor{}, fmt.Errorf("invalid rate type %s", l.RateType)
	}
	l.ProjectID = projectID
	l.Cost = domain.LaborCost(l.Qty, l.Rate)
	pd := e.Store.GetProjectData(projectID)
	if l.ID == "" {
		l.ID = e.NewID()
		pd.Labor = append(pd.Labor, l)
	} else {
		idx := laborIndex(pd.Labor, l.ID)
		if idx < 0 {
			return domain.Labor{}, fmt.Errorf("labor %s: %w", l.ID, ErrNotFound)
		}
		pd.Labor[idx] = l
	}
	e.Store.ReplaceLabor(projectID, pd.Labor)
	return l, nil
}

// SaveMaterial commits a material edit buffer. TotalCost is recomputed
// from qty and unit cost.
func (e *Engine) SaveMaterial(role, projectID string, m domain.Material) (domain.Material, error) {
	if err := requireAdmin(role, "material save"); err != nil {
		return domain.Material{}, err
	}
	if m.Item == "" {
		return domain.Material{}, fmt.Errorf("material item is required")
	}
	if m.Category == "" {
		m.Category = "Other"
	}
	if !domain.ValidMaterialCategory(m.Category) {
		return domain.Material{}, fmt.Errorf("invalid material category %s", m.Category)
	}
	m.ProjectID = projectID
	m.TotalCost = domain.MaterialTotal(m.Qty, m.UnitCost)
	pd := e.Store.GetProjectData(projectID)
	if m.ID == "" {
		m.ID = e.NewID()
		pd.Materials = append(pd.Materials, m)
	} else {
		idx := materialIndex(pd.Materials, m.ID)
		if idx < 0 {
			return domain.Material{}, fmt.Errorf("material %s: %w", m.ID, ErrNotFound)
		}
		pd.Materials[idx] = m
	}
	e.Store.ReplaceMaterials(projectID, pd.Materials)
	return m, nil
}

// DeleteOutcome reports the effect of a delete request.
type DeleteOutcome struct {
	// Armed holds the currently armed id when confirmation is still
	// pending; empty after a committed delete.
	Armed   string `json:"armed,omitempty"`
	Deleted bool   `json:"deleted"`
}

// RequestDelete advances the two-phase delete state machine. The first
// request for a row arms it; a second request for the same row commits
// the delete. Requesting a different row while one is armed reassigns
// the single arm to the new row. Only one row per (project, kind) may
// be armed at a time.
func (e *Engine) RequestDelete(ctx context.Context, role, projectID, kind, id string) (DeleteOutcome, error) {
	if err := requireAdmin(role, "delete"); err != nil {
		return DeleteOutcome{}, err
	}
	if id == "" {
		return DeleteOutcome{}, fmt.Errorf("id is required")
	}
	key := armKey{project: projectID, kind: kind}
	e.mu.Lock()
	current := e.armed[key]
	if current != id {
		e.armed[key] = id
		e.mu.Unlock()
		return DeleteOutcome{Armed: id}, nil
	}
	delete(e.armed, key)
	e.mu.Unlock()
	return e.commitDelete(ctx, projectID, kind, id)
}

// CancelDelete clears the armed row for a project and kind.
func (e *Engine) CancelDelete(projectID, kind string) {
	e.mu.Lock()
	delete(e.armed, armKey{project: projectID, kind: kind})
	e.mu.Unlock()
}

// ArmedDelete returns the currently armed id, if any.
func (e *Engine) ArmedDelete(projectID, kind string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.armed[armKey{project: projectID, kind: kind}]
}

func (e *Engine) commitDelete(ctx context.Context, projectID, kind, id string) (DeleteOutcome, error) {
	pd := e.Store.GetProjectData(projectID)
	var att *domain.Attachment
	switch kind {
	case domain.KindTask:
		idx := taskIndex(pd.Tasks, id)
		if idx < 0 {
			return DeleteOutcome{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		att = pd.Tasks[idx].Attachment
		pd.Tasks = append(pd.Tasks[:idx], pd.Tasks[idx+1:]...)
		e.Store.ReplaceTasks(projectID, pd.Tasks)
	case domain.KindLabor:
		idx := laborIndex(pd.Labor, id)
		if idx < 0 {
			return DeleteOutcome{}, fmt.Errorf("labor %s: %w", id, ErrNotFound)
		}
		att = pd.Labor[idx].Attachment
		pd.Labor = append(pd.Labor[:idx], pd.Labor[idx+1:]...)
		e.Store.ReplaceLabor(projectID, pd.Labor)
	case domain.KindMaterial:
		idx := materialIndex(pd.Materials, id)
		if idx < 0 {
			return DeleteOutcome{}, fmt.Errorf("material %s: %w", id, ErrNotFound)
		}
		att = pd.Materials[idx].Attachment
		pd.Materials = append(pd.Materials[:idx], pd.Materials[idx+1:]...)
		e.Store.ReplaceMaterials(projectID, pd.Materials)
	default:
		return DeleteOutcome{}, fmt.Errorf("unknown record kind %s", kind)
	}
	e.cleanupAttachment(ctx, att)
	return DeleteOutcome{Deleted: true}, nil
}

// cleanupAttachment removes the blob backing a store-kind attachment.
// Removal failure is logged, not retried, and never blocks the delete.
func (e *Engine) cleanupAttachment(ctx context.Context, att *domain.Attachment) {
	if att == nil || att.Kind != domain.AttachStore || att.Key == "" {
		return
	}
	if e.Blobs.DB == nil {
		return
	}
	if err := e.Blobs.Delete(ctx, att.Key); err != nil {
		e.Log.Warn("delete attachment blob", "key", att.Key, "error", err)
	}
}

// TogglePaid flips the paid flag on a single record in place.
func (e *Engine) TogglePaid(role, projectID, kind, id string) (bool, error) {
	if err := requireAdmin(role, "toggle paid"); err != nil {
		return false, err
	}
	pd := e.Store.GetProjectData(projectID)
	switch kind {
	case domain.KindTask:
		idx := taskIndex(pd.Tasks, id)
		if idx < 0 {
			return false, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		pd.Tasks[idx].Paid = !pd.Tasks[idx].Paid
		e.Store.ReplaceTasks(projectID, pd.Tasks)
		return pd.Tasks[idx].Paid, nil
	case domain.KindLabor:
		idx := laborIndex(pd.Labor, id)
		if idx < 0 {
			return false, fmt.Errorf("labor %s: %w", id, ErrNotFound)
		}
		pd.Labor[idx].Paid = !pd.Labor[idx].Paid
		e.Store.ReplaceLabor(projectID, pd.Labor)
		return pd.Labor[idx].Paid, nil
	case domain.KindMaterial:
		idx := materialIndex(pd.Materials, id)
		if idx < 0 {
			return false, fmt.Errorf("material %s: %w", id, ErrNotFound)
		}
		pd.Materials[idx].Paid = !pd.Materials[idx].Paid
		e.Store.ReplaceMaterials(projectID, pd.Materials)
		return pd.Materials[idx].Paid, nil
	}
	return false, fmt.Errorf("unknown record kind %s", kind)
}

// ToggleReceived flips the received flag on a material. TotalCost is
// not recomputed; the flag flip does not touch cost inputs.
func (e *Engine) ToggleReceived(role, projectID, id string) (bool, error) {
	if err := requireAdmin(role, "toggle received"); err != nil {
		return false, err
	}
	pd := e.Store.GetProjectData(projectID)
	idx := materialIndex(pd.Materials, id)
	if idx < 0 {
		return false, fmt.Errorf("material %s: %w", id, ErrNotFound)
	}
	pd.Materials[idx].Received = !pd.Materials[idx].Received
	e.Store.ReplaceMaterials(projectID, pd.Materials)
	return pd.Materials[idx].Received, nil
}

func taskIndex(tasks []domain.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func laborIndex(labor []domain.Labor, id string) int {
	for i := range labor {
		if labor[i].ID == id {
			return i
		}
	}
	return -1
}

func materialIndex(materials []domain.Material, id string) int {
	for i := range materials {
		if materials[i].ID == id {
			return i
		}
	}
	return -1
}
