package workspace

import (
	"fmt"

	"siteledger/internal/csvio"
	"siteledger/internal/domain"
)

// ExportCSV serializes the named sequence to delimited text. Export is
// read-only and available to every role.
func (e *Engine) ExportCSV(projectID, kind string) (string, error) {
	pd := e.Store.GetProjectData(projectID)
	switch kind {
	case domain.KindTask:
		return csvio.ExportTasks(pd.Tasks), nil
	case domain.KindLabor:
		return csvio.ExportLabor(pd.Labor), nil
	case domain.KindMaterial:
		return csvio.ExportMaterials(pd.Materials), nil
	}
	return "", fmt.Errorf("unknown record kind %s", kind)
}

// ImportCSV parses delimited text and appends every row as a new
// record with a freshly generated id. Existing rows are never
// overwritten by import.
func (e *Engine) ImportCSV(role, projectID, kind, text string) (int, error) {
	if err := requireAdmin(role, "csv import"); err != nil {
		return 0, err
	}
	pd := e.Store.GetProjectData(projectID)
	switch kind {
	case domain.KindTask:
		rows := csvio.ImportTasks(text)
		for _, t := range rows {
			t.ID = e.NewID()
			t.ProjectID = projectID
			pd.Tasks = append(pd.Tasks, t)
		}
		e.Store.ReplaceTasks(projectID, pd.Tasks)
		return len(rows), nil
	case domain.KindLabor:
		rows := csvio.ImportLabor(text)
		for _, l := range rows {
			l.ID = e.NewID()
			l.ProjectID = projectID
			pd.Labor = append(pd.Labor, l)
		}
		e.Store.ReplaceLabor(projectID, pd.Labor)
		return len(rows), nil
	case domain.KindMaterial:
		rows := csvio.ImportMaterials(text)
		for _, m := range rows {
			m.ID = e.NewID()
			m.ProjectID = projectID
			pd.Materials = append(pd.Materials, m)
		}
		e.Store.ReplaceMaterials(projectID, pd.Materials)
		return len(rows), nil
	}
	return 0, fmt.Errorf("unknown record kind %s", kind)
}
