package domain

// Record kinds managed by the workspace.
const (
	KindTask     = "tasks"
	KindLabor    = "labor"
	KindMaterial = "materials"
)

// Task statuses.
const (
	StatusPending    = "Pending"
	StatusBacklog    = "Backlog"
	StatusInProgress = "In Progress"
	StatusBlocked    = "Blocked"
	StatusReview     = "Review"
	StatusDone       = "Done"
)

// TaskStatuses lists valid task statuses in display order.
var TaskStatuses = []string{StatusPending, StatusBacklog, StatusInProgress, StatusBlocked, StatusReview, StatusDone}

// TaskCategories lists the construction phases a task can belong to.
var TaskCategories = []string{"Design", "Site Prep", "Foundation", "Structure", "MEP", "Finish", "Inspection"}

// MaterialCategories lists valid material categories.
var MaterialCategories = []string{"Aggregates", "Timber", "Steel", "Electrical", "Plumbing", "Finishes", "Fixtures", "Other"}

// Labor rate types.
const (
	RateHourly = "Hourly"
	RateDaily  = "Daily"
)

// Attachment kinds.
const (
	AttachImage = "image"
	AttachDrive = "drive"
	AttachStore = "store"
)

// Attachment is a tagged union over three storage representations.
// Exactly one payload field is populated for a given Kind: Data for
// image, URL for drive, Key for store.
type Attachment struct {
	Kind string `json:"kind" enum:"image,drive,store"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

type Task struct {
	ID         string      `json:"id" required:"false"`
	ProjectID  string      `json:"project_id" required:"false"`
	Name       string      `json:"name"`
	Status     string      `json:"status" enum:"Pending,Backlog,In Progress,Blocked,Review,Done" required:"false"`
	Category   string      `json:"category" required:"false"`
	Owner      string      `json:"owner,omitempty"`
	StartDate  string      `json:"start_date,omitempty" format:"date"`
	DueDate    string      `json:"due_date,omitempty" format:"date"`
	EstHours   float64     `json:"est_hours,omitempty"`
	ActHours   *float64    `json:"act_hours,omitempty"`
	Cost       float64     `json:"cost" required:"false"`
	Tags       []string    `json:"tags,omitempty"`
	SortOrder  int         `json:"sort_order" required:"false"`
	Notes      string      `json:"notes,omitempty"`
	Paid       bool        `json:"paid" required:"false"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type Labor struct {
	ID         string      `json:"id" required:"false"`
	ProjectID  string      `json:"project_id" required:"false"`
	Role       string      `json:"role"`
	Workers    string      `json:"workers,omitempty"`
	RateType   string      `json:"rate_type" enum:"Hourly,Daily" required:"false"`
	Qty        float64     `json:"qty" required:"false"`
	Rate       float64     `json:"rate" required:"false"`
	Cost       float64     `json:"cost" required:"false"`
	Source     string      `json:"source,omitempty"`
	StartDate  string      `json:"start_date,omitempty" format:"date"`
	EndDate    string      `json:"end_date,omitempty" format:"date"`
	Notes      string      `json:"notes,omitempty"`
	Paid       bool        `json:"paid" required:"false"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type Material struct {
	ID          string      `json:"id" required:"false"`
	ProjectID   string      `json:"project_id" required:"false"`
	Item        string      `json:"item"`
	Category    string      `json:"category" required:"false"`
	Unit        string      `json:"unit,omitempty"`
	Qty         float64     `json:"qty" required:"false"`
	UnitCost    float64     `json:"unit_cost" required:"false"`
	TotalCost   float64     `json:"total_cost" required:"false"`
	Supplier    string      `json:"supplier,omitempty"`
	LeadDays    int         `json:"lead_days,omitempty"`
	DeliveryETA string      `json:"delivery_eta,omitempty" format:"date"`
	Received    bool        `json:"received" required:"false"`
	Location    string      `json:"location,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Paid        bool        `json:"paid" required:"false"`
	Attachment  *Attachment `json:"attachment,omitempty"`
}

// ProjectData aggregates the three record sequences owned by one project.
type ProjectData struct {
	Tasks     []Task     `json:"tasks"`
	Labor     []Labor    `json:"labor"`
	Materials []Material `json:"materials"`
}

// Empty returns a ProjectData with non-nil empty sequences.
func Empty() ProjectData {
	return ProjectData{Tasks: []Task{}, Labor: []Labor{}, Materials: []Material{}}
}

// Blog post statuses.
const (
	BlogPublished = "Published"
	BlogDraft     = "Draft"
)

type BlogPost struct {
	ID      string   `json:"id" required:"false"`
	Title   string   `json:"title"`
	Author  string   `json:"author,omitempty"`
	Date    string   `json:"date,omitempty" format:"date"`
	Status  string   `json:"status" enum:"Published,Draft" required:"false"`
	Excerpt string   `json:"excerpt,omitempty"`
	Body    string   `json:"body,omitempty"`
	Image   string   `json:"image,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// LaborCost derives cost from qty and rate.
func LaborCost(qty, rate float64) float64 { return qty * rate }

// MaterialTotal derives total cost from qty and unit cost.
func MaterialTotal(qty, unitCost float64) float64 { return qty * unitCost }

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool { return contains(TaskStatuses, s) }

// ValidTaskCategory reports whether c is a known task category.
func ValidTaskCategory(c string) bool { return contains(TaskCategories, c) }

// ValidMaterialCategory reports whether c is a known material category.
func ValidMaterialCategory(c string) bool { return contains(MaterialCategories, c) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
