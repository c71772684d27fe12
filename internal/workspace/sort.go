package workspace

import (
	"sort"
	"strings"

	"siteledger/internal/domain"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// DefaultSort returns the default sort column and direction for a
// record kind. Switching kinds resets sort to these.
func DefaultSort(kind string) (field, dir string) {
	switch kind {
	case domain.KindLabor:
		return "start_date", Desc
	case domain.KindMaterial:
		return "delivery_eta", Desc
	default:
		return "sort_order", Asc
	}
}

// SortTasks sorts a task sequence in place by field and direction.
// Equal keys fall back to id order, ascending regardless of direction,
// so results are deterministic.
func SortTasks(tasks []domain.Task, field, dir string) {
	less := taskLess(field)
	desc := strings.EqualFold(dir, Desc)
	sort.SliceStable(tasks, func(i, j int) bool {
		return ordered(less(tasks[i], tasks[j]), desc, tasks[i].ID, tasks[j].ID)
	})
}

// SortLabor sorts a labor sequence in place by field and direction.
func SortLabor(labor []domain.Labor, field, dir string) {
	less := laborLess(field)
	desc := strings.EqualFold(dir, Desc)
	sort.SliceStable(labor, func(i, j int) bool {
		return ordered(less(labor[i], labor[j]), desc, labor[i].ID, labor[j].ID)
	})
}

// SortMaterials sorts a material sequence in place by field and direction.
func SortMaterials(materials []domain.Material, field, dir string) {
	less := materialLess(field)
	desc := strings.EqualFold(dir, Desc)
	sort.SliceStable(materials, func(i, j int) bool {
		return ordered(less(materials[i], materials[j]), desc, materials[i].ID, materials[j].ID)
	})
}

func ordered(c int, desc bool, idA, idB string) bool {
	if c == 0 {
		return idA < idB
	}
	if desc {
		return c > 0
	}
	return c < 0
}

func taskLess(field string) func(a, b domain.Task) int {
	switch field {
	case "name":
		return func(a, b domain.Task) int { return strings.Compare(a.Name, b.Name) }
	case "status":
		return func(a, b domain.Task) int { return strings.Compare(a.Status, b.Status) }
	case "category":
		return func(a, b domain.Task) int { return strings.Compare(a.Category, b.Category) }
	case "owner":
		return func(a, b domain.Task) int { return strings.Compare(a.Owner, b.Owner) }
	case "start_date":
		return func(a, b domain.Task) int { return strings.Compare(a.StartDate, b.StartDate) }
	case "due_date":
		return func(a, b domain.Task) int { return strings.Compare(a.DueDate, b.DueDate) }
	case "cost":
		return func(a, b domain.Task) int { return cmpFloat(a.Cost, b.Cost) }
	default: // sort_order
		return func(a, b domain.Task) int { return cmpInt(a.SortOrder, b.SortOrder) }
	}
}

func laborLess(field string) func(a, b domain.Labor) int {
	switch field {
	case "role":
		return func(a, b domain.Labor) int { return strings.Compare(a.Role, b.Role) }
	case "qty":
		return func(a, b domain.Labor) int { return cmpFloat(a.Qty, b.Qty) }
	case "rate":
		return func(a, b domain.Labor) int { return cmpFloat(a.Rate, b.Rate) }
	case "cost":
		return func(a, b domain.Labor) int { return cmpFloat(a.Cost, b.Cost) }
	case "end_date":
		return func(a, b domain.Labor) int { return strings.Compare(a.EndDate, b.EndDate) }
	default: // start_date
		return func(a, b domain.Labor) int { return strings.Compare(a.StartDate, b.StartDate) }
	}
}

func materialLess(field string) func(a, b domain.Material) int {
	switch field {
	case "item":
		return func(a, b domain.Material) int { return strings.Compare(a.Item, b.Item) }
	case "category":
		return func(a, b domain.Material) int { return strings.Compare(a.Category, b.Category) }
	case "qty":
		return func(a, b domain.Material) int { return cmpFloat(a.Qty, b.Qty) }
	case "unit_cost":
		return func(a, b domain.Material) int { return cmpFloat(a.UnitCost, b.UnitCost) }
	case "total_cost":
		return func(a, b domain.Material) int { return cmpFloat(a.TotalCost, b.TotalCost) }
	case "supplier":
		return func(a, b domain.Material) int { return strings.Compare(a.Supplier, b.Supplier) }
	default: // delivery_eta
		return func(a, b domain.Material) int { return strings.Compare(a.DeliveryETA, b.DeliveryETA) }
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
