package workspace

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"siteledger/internal/blob"
	"siteledger/internal/db"
	"siteledger/internal/domain"
	"siteledger/internal/migrate"
	"siteledger/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	e := New(s, blob.Store{}, nil)
	n := 0
	e.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return e
}

func newTestEngineWithBlobs(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(s, blob.Store{DB: conn}, nil)
}

func TestSaveTaskAppendsWithDefaults(t *testing.T) {
	e := newTestEngine(t)
	saved, err := e.SaveTask(RoleAdmin, "p1", domain.Task{Name: "Set out footings"})
	if err != nil {
		t.Fatalf("save task: %v", err)
	}
	if saved.ID == "" || saved.ProjectID != "p1" {
		t.Fatalf("identity not assigned: %+v", saved)
	}
	if saved.Status != domain.StatusPending {
		t.Fatalf("status default = %q, want Pending", saved.Status)
	}
	got := e.Store.GetProjectData("p1").Tasks
	if len(got) != 1 || got[0].ID != saved.ID {
		t.Fatalf("task not stored: %+v", got)
	}
}

func TestSaveUnknownIDFails(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SaveTask(RoleAdmin, "p1", domain.Task{ID: "ghost", Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := e.SaveLabor(RoleAdmin, "p1", domain.Labor{ID: "ghost", Role: "Mason"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := e.SaveMaterial(RoleAdmin, "p1", domain.Material{ID: "ghost", Item: "Sand"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDerivedCosts(t *testing.T) {
	e := newTestEngine(t)
	l, err := e.SaveLabor(RoleAdmin, "p1", domain.Labor{Role: "Mason", Qty: 8, Rate: 62.5, Cost: 1})
	if err != nil {
		t.Fatalf("save labor: %v", err)
	}
	if l.Cost != 500 {
		t.Fatalf("labor cost = %v, want 500 (buffer cost must be ignored)", l.Cost)
	}
	m, err := e.SaveMaterial(RoleAdmin, "p1", domain.Material{Item: "Rebar #10", Category: "Steel", Qty: 5, UnitCost: 50000, TotalCost: 9})
	if err != nil {
		t.Fatalf("save material: %v", err)
	}
	if m.TotalCost != 250000 {
		t.Fatalf("material total = %v, want 250000", m.TotalCost)
	}
}

func TestNonAdminCannotMutate(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.SaveTask(RoleAdmin, "p1", domain.Task{Name: "keep"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := e.Store.GetProjectData("p1")

	var fe ForbiddenError
	if _, err := e.SaveTask(RoleInvestor, "p1", domain.Task{Name: "nope"}); !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if _, err := e.RequestDelete(context.Background(), RoleInvestor, "p1", domain.KindTask, before.Tasks[0].ID); !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if _, err := e.TogglePaid(RoleInvestor, "p1", domain.KindTask, before.Tasks[0].ID); !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if _, err := e.ImportCSV(RoleInvestor, "p1", domain.KindTask, "name\nx\n"); !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}

	after := e.Store.GetProjectData("p1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("denied operations mutated state:\nbefore %+v\nafter %+v", before, after)
	}
}

func TestTwoPhaseDelete(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, _ := e.SaveTask(RoleAdmin, "p1", domain.Task{Name: "a"})
	b, _ := e.SaveTask(RoleAdmin, "p1", domain.Task{Name: "b"})

	out, err := e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindTask, a.ID)
	if err != nil || out.Deleted || out.Armed != a.ID {
		t.Fatalf("first request must arm: %+v %v", out, err)
	}
	// A different id reassigns the single arm.
	out, err = e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindTask, b.ID)
	if err != nil || out.Deleted || out.Armed != b.ID {
		t.Fatalf("reassign must arm b: %+v %v", out, err)
	}
	if got := e.ArmedDelete("p1", domain.KindTask); got != b.ID {
		t.Fatalf("armed = %q, want %q", got, b.ID)
	}
	// Repeating the armed id commits.
	out, err = e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindTask, b.ID)
	if err != nil || !out.Deleted || out.Armed != "" {
		t.Fatalf("second request must delete: %+v %v", out, err)
	}
	tasks := e.Store.GetProjectData("p1").Tasks
	if len(tasks) != 1 || tasks[0].ID != a.ID {
		t.Fatalf("exactly one record must be removed: %+v", tasks)
	}
}

func TestCancelDelete(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, _ := e.SaveTask(RoleAdmin, "p1", domain.Task{Name: "a"})
	if _, err := e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindTask, a.ID); err != nil {
		t.Fatalf("arm: %v", err)
	}
	e.CancelDelete("p1", domain.KindTask)
	if got := e.ArmedDelete("p1", domain.KindTask); got != "" {
		t.Fatalf("cancel must disarm, got %q", got)
	}
	// After cancel the next request arms again instead of deleting.
	out, err := e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindTask, a.ID)
	if err != nil || out.Deleted {
		t.Fatalf("request after cancel must arm: %+v %v", out, err)
	}
}

func TestArmStateIsPerProjectAndKind(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, _ := e.SaveTask(RoleAdmin, "p1", domain.Task{Name: "a"})
	l, _ := e.SaveLabor(RoleAdmin, "p1", domain.Labor{Role: "Mason"})
	if _, err := e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindTask, a.ID); err != nil {
		t.Fatalf("arm task: %v", err)
	}
	if _, err := e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindLabor, l.ID); err != nil {
		t.Fatalf("arm labor: %v", err)
	}
	if e.ArmedDelete("p1", domain.KindTask) != a.ID || e.ArmedDelete("p1", domain.KindLabor) != l.ID {
		t.Fatalf("arms must not interfere across kinds")
	}
}

func TestDeleteRemovesStoreAttachmentBlob(t *testing.T) {
	e := newTestEngineWithBlobs(t)
	ctx := context.Background()
	if err := e.Blobs.Save(ctx, "receipt-1", "cGF5bG9hZA==", "receipt.jpg"); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	m, err := e.SaveMaterial(RoleAdmin, "p1", domain.Material{
		Item:       "Cement",
		Qty:        1,
		UnitCost:   90000,
		Attachment: &domain.Attachment{Kind: domain.AttachStore, Key: "receipt-1"},
	})
	if err != nil {
		t.Fatalf("save material: %v", err)
	}
	if _, err := e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindMaterial, m.ID); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if _, err := e.RequestDelete(ctx, RoleAdmin, "p1", domain.KindMaterial, m.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := e.Blobs.Get(ctx, "receipt-1"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("blob must be cleaned up, got %v", err)
	}
}

func TestTogglePaid(t *testing.T) {
	e := newTestEngine(t)
	m, _ := e.SaveMaterial(RoleAdmin, "p1", domain.Material{Item: "Sand", Qty: 2, UnitCost: 30000})
	paid, err := e.TogglePaid(RoleAdmin, "p1", domain.KindMaterial, m.ID)
	if err != nil || !paid {
		t.Fatalf("toggle on: %v %v", paid, err)
	}
	paid, err = e.TogglePaid(RoleAdmin, "p1", domain.KindMaterial, m.ID)
	if err != nil || paid {
		t.Fatalf("toggle off: %v %v", paid, err)
	}
	if _, err := e.TogglePaid(RoleAdmin, "p1", domain.KindMaterial, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleReceivedKeepsTotal(t *testing.T) {
	e := newTestEngine(t)
	m, _ := e.SaveMaterial(RoleAdmin, "p1", domain.Material{Item: "Tiles", Qty: 40, UnitCost: 25000})
	received, err := e.ToggleReceived(RoleAdmin, "p1", m.ID)
	if err != nil || !received {
		t.Fatalf("toggle received: %v %v", received, err)
	}
	got := e.Store.GetProjectData("p1").Materials[0]
	if got.TotalCost != 1000000 {
		t.Fatalf("total cost changed on receive toggle: %v", got.TotalCost)
	}
}

func TestImportExportCSV(t *testing.T) {
	e := newTestEngine(t)
	n, err := e.ImportCSV(RoleAdmin, "p1", domain.KindLabor, "role,qty,rate\nMason,5,100000\nCarpenter,3,120000\n")
	if err != nil || n != 2 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}
	labor := e.Store.GetProjectData("p1").Labor
	if len(labor) != 2 {
		t.Fatalf("rows not appended: %+v", labor)
	}
	for _, l := range labor {
		if l.ID == "" || l.ProjectID != "p1" {
			t.Fatalf("imported row missing identity: %+v", l)
		}
	}
	text, err := e.ExportCSV("p1", domain.KindLabor)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if text == "" || len(text) < len("id,role") {
		t.Fatalf("export too small:\n%s", text)
	}
	if _, err := e.ExportCSV("p1", "widgets"); err == nil {
		t.Fatalf("unknown kind must error")
	}
}
