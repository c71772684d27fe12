package siteledgersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Siteledger portal API client.
type Client struct {
	BaseURL     string
	ProjectID   string
	BearerToken string
	// Role is sent as X-Portal-Role when no token is set. Development
	// servers only.
	Role       string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// Attachment mirrors the API attachment union.
type Attachment struct {
	Kind string `json:"kind"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

// Task represents the API task model.
type Task struct {
	ID         string      `json:"id"`
	ProjectID  string      `json:"project_id"`
	Name       string      `json:"name"`
	Status     string      `json:"status"`
	Category   string      `json:"category"`
	Owner      string      `json:"owner,omitempty"`
	StartDate  string      `json:"start_date,omitempty"`
	DueDate    string      `json:"due_date,omitempty"`
	Cost       float64     `json:"cost"`
	Tags       []string    `json:"tags,omitempty"`
	SortOrder  int         `json:"sort_order"`
	Notes      string      `json:"notes,omitempty"`
	Paid       bool        `json:"paid"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Labor represents the API labor model.
type Labor struct {
	ID         string      `json:"id"`
	ProjectID  string      `json:"project_id"`
	Role       string      `json:"role"`
	RateType   string      `json:"rate_type"`
	Qty        float64     `json:"qty"`
	Rate       float64     `json:"rate"`
	Cost       float64     `json:"cost"`
	StartDate  string      `json:"start_date,omitempty"`
	EndDate    string      `json:"end_date,omitempty"`
	Paid       bool        `json:"paid"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Material represents the API material model.
type Material struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Item        string      `json:"item"`
	Category    string      `json:"category"`
	Unit        string      `json:"unit,omitempty"`
	Qty         float64     `json:"qty"`
	UnitCost    float64     `json:"unit_cost"`
	TotalCost   float64     `json:"total_cost"`
	Supplier    string      `json:"supplier,omitempty"`
	DeliveryETA string      `json:"delivery_eta,omitempty"`
	Received    bool        `json:"received"`
	Paid        bool        `json:"paid"`
	Attachment  *Attachment `json:"attachment,omitempty"`
}

// ProjectData aggregates the three record sequences.
type ProjectData struct {
	Tasks     []Task     `json:"tasks"`
	Labor     []Labor    `json:"labor"`
	Materials []Material `json:"materials"`
}

// WeeklyTotals is the paid/unpaid rollup for a seven-day window.
type WeeklyTotals struct {
	Paid   float64 `json:"paid"`
	Unpaid float64 `json:"unpaid"`
}

// DeleteOutcome reports the two-phase delete state.
type DeleteOutcome struct {
	Armed   string `json:"armed,omitempty"`
	Deleted bool   `json:"deleted"`
}

// ReceiptDraft is one extracted material row awaiting review.
type ReceiptDraft struct {
	Item      string  `json:"item"`
	Qty       float64 `json:"qty"`
	UnitCost  float64 `json:"unit_cost"`
	TotalCost float64 `json:"total_cost"`
	Category  string  `json:"category"`
	Selected  bool    `json:"selected"`
}

// BlogPost represents the API blog post model.
type BlogPost struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Author  string   `json:"author,omitempty"`
	Date    string   `json:"date,omitempty"`
	Status  string   `json:"status"`
	Excerpt string   `json:"excerpt,omitempty"`
	Body    string   `json:"body,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Data fetches the full project data snapshot.
func (c *Client) Data(ctx context.Context) (ProjectData, error) {
	var resp ProjectData
	err := c.do(ctx, http.MethodGet, c.projectPath("data"), nil, &resp)
	return resp, err
}

// ListTasks returns tasks, optionally sorted.
func (c *Client) ListTasks(ctx context.Context, sortField, dir string) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, c.sorted(c.projectPath("tasks"), sortField, dir), nil, &resp)
	return resp, err
}

// SaveTask creates or updates a task.
func (c *Client) SaveTask(ctx context.Context, t Task) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, c.projectPath("tasks"), t, &resp)
	return resp, err
}

// ListLabor returns labor entries, optionally sorted.
func (c *Client) ListLabor(ctx context.Context, sortField, dir string) ([]Labor, error) {
	var resp []Labor
	err := c.do(ctx, http.MethodGet, c.sorted(c.projectPath("labor"), sortField, dir), nil, &resp)
	return resp, err
}

// SaveLabor creates or updates a labor entry.
func (c *Client) SaveLabor(ctx context.Context, l Labor) (Labor, error) {
	var resp Labor
	err := c.do(ctx, http.MethodPost, c.projectPath("labor"), l, &resp)
	return resp, err
}

// ListMaterials returns material entries, optionally sorted.
func (c *Client) ListMaterials(ctx context.Context, sortField, dir string) ([]Material, error) {
	var resp []Material
	err := c.do(ctx, http.MethodGet, c.sorted(c.projectPath("materials"), sortField, dir), nil, &resp)
	return resp, err
}

// SaveMaterial creates or updates a material entry.
func (c *Client) SaveMaterial(ctx context.Context, m Material) (Material, error) {
	var resp Material
	err := c.do(ctx, http.MethodPost, c.projectPath("materials"), m, &resp)
	return resp, err
}

// DeleteRecord advances the two-phase delete for a record. The first
// call arms; calling again with the same id commits.
func (c *Client) DeleteRecord(ctx context.Context, kind, id string) (DeleteOutcome, error) {
	var resp DeleteOutcome
	endpoint := c.projectPath(fmt.Sprintf("records/%s/%s", url.PathEscape(kind), url.PathEscape(id)))
	err := c.do(ctx, http.MethodDelete, endpoint, nil, &resp)
	return resp, err
}

// CancelDelete disarms any pending delete for a record kind.
func (c *Client) CancelDelete(ctx context.Context, kind string) error {
	endpoint := c.projectPath(fmt.Sprintf("records/%s/cancel-delete", url.PathEscape(kind)))
	return c.do(ctx, http.MethodPost, endpoint, nil, nil)
}

// TogglePaid flips the paid flag on a record.
func (c *Client) TogglePaid(ctx context.Context, kind, id string) (bool, error) {
	var resp struct {
		Paid bool `json:"paid"`
	}
	endpoint := c.projectPath(fmt.Sprintf("records/%s/%s/paid", url.PathEscape(kind), url.PathEscape(id)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp.Paid, err
}

// ToggleReceived flips the received flag on a material.
func (c *Client) ToggleReceived(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Received bool `json:"received"`
	}
	endpoint := c.projectPath(fmt.Sprintf("materials/%s/received", url.PathEscape(id)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp.Received, err
}

// ExportCSV returns the CSV text for a record kind.
func (c *Client) ExportCSV(ctx context.Context, kind string) (string, error) {
	endpoint := c.projectPath(fmt.Sprintf("records/%s/export", url.PathEscape(kind)))
	return c.doText(ctx, http.MethodGet, endpoint)
}

// ImportCSV submits CSV text and returns the appended row count.
func (c *Client) ImportCSV(ctx context.Context, kind, text string) (int, error) {
	var resp struct {
		Imported int `json:"imported"`
	}
	endpoint := c.projectPath(fmt.Sprintf("records/%s/import", url.PathEscape(kind)))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]string{"text": text}, &resp)
	return resp.Imported, err
}

// WeeklyTotals returns the project's paid/unpaid rollup for the seven
// days ending at ref (YYYY-MM-DD, empty means today).
func (c *Client) WeeklyTotals(ctx context.Context, ref string) (WeeklyTotals, error) {
	endpoint := c.projectPath("totals/weekly")
	if ref != "" {
		endpoint += "?ref=" + url.QueryEscape(ref)
	}
	var resp WeeklyTotals
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ExtractReceipt submits a base64 receipt image for extraction.
func (c *Client) ExtractReceipt(ctx context.Context, imageBase64 string) ([]ReceiptDraft, error) {
	var resp struct {
		Items []ReceiptDraft `json:"items"`
	}
	endpoint := c.projectPath("materials/receipt")
	err := c.do(ctx, http.MethodPost, endpoint, map[string]string{"image": imageBase64}, &resp)
	return resp.Items, err
}

// CommitReceipt appends the selected drafts as material records.
func (c *Client) CommitReceipt(ctx context.Context, imageBase64, name string, items []ReceiptDraft) ([]Material, error) {
	var resp struct {
		Materials []Material `json:"materials"`
	}
	endpoint := c.projectPath("materials/receipt/commit")
	body := map[string]any{"image": imageBase64, "name": name, "items": items}
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp.Materials, err
}

// ListPosts returns blog posts.
func (c *Client) ListPosts(ctx context.Context, publishedOnly bool) ([]BlogPost, error) {
	endpoint := "v0/blog/posts"
	if publishedOnly {
		endpoint += "?published=true"
	}
	var resp []BlogPost
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SavePost creates or updates a blog post.
func (c *Client) SavePost(ctx context.Context, p BlogPost) (BlogPost, error) {
	var resp BlogPost
	err := c.do(ctx, http.MethodPost, "v0/blog/posts", p, &resp)
	return resp, err
}

// DeletePost deletes a blog post.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v0/blog/posts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) doText(ctx context.Context, method, endpoint string) (string, error) {
	resp, err := c.send(ctx, method, endpoint, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return string(b), nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.Role != "":
		req.Header.Set("X-Portal-Role", c.Role)
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) sorted(endpoint, sortField, dir string) string {
	q := url.Values{}
	if sortField != "" {
		q.Set("sort", sortField)
	}
	if dir != "" {
		q.Set("dir", dir)
	}
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
