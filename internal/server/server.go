package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"siteledger/internal/attach"
	"siteledger/internal/blob"
	"siteledger/internal/blog"
	"siteledger/internal/currency"
	"siteledger/internal/domain"
	"siteledger/internal/receipt"
	"siteledger/internal/store"
	"siteledger/internal/workspace"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *workspace.Engine
	Blog     *blog.Manager
	Receipts *receipt.Service
	Resolver attach.Resolver
	Blobs    blob.Store
	Store    *store.Store
	Currency currency.Formatter
	Projects []string
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"forbidden"`
	Message string         `json:"message" example:"admin role required for task save"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Siteledger portal API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Siteledger Portal API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerAuth(group, cfg.Auth)
	registerProjects(group, cfg)
	registerRecords(group, cfg.Engine)
	registerCSV(group, cfg.Engine)
	registerTotals(group, cfg.Store)
	registerCurrency(group, cfg.Currency)
	registerReceipts(group, cfg.Receipts)
	registerAttachments(group, cfg.Resolver)
	registerBlobs(group, cfg.Blobs)
	registerBlog(group, cfg.Blog)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe workspace.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"action": fe.Action})
	}
	var ee receipt.ExtractError
	if errors.As(err, &ee) {
		return newAPIError(http.StatusBadGateway, "extraction_failed", err.Error(), nil)
	}
	if errors.Is(err, workspace.ErrNotFound) || errors.Is(err, blog.ErrNotFound) || errors.Is(err, blob.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "unknown record kind") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadGateway:
		return "extraction_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func validKind(kind string) bool {
	switch kind {
	case domain.KindTask, domain.KindLabor, domain.KindMaterial:
		return true
	}
	return false
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuth(api huma.API, auth AuthConfig) {
	if !auth.AllowBootstrapLogin {
		return
	}
	huma.Register(api, huma.Operation{
		OperationID: "auth-token",
		Method:      http.MethodPost,
		Path:        "/auth/token",
		Summary:     "Mint a portal token (development only)",
	}, func(ctx context.Context, input *struct {
		Body struct {
			Actor string `json:"actor"`
			Role  string `json:"role" enum:"admin,investor"`
		} `json:"body"`
	}) (*struct {
		Body struct {
			Token string `json:"token"`
		} `json:"body"`
	}, error) {
		actor := input.Body.Actor
		if actor == "" {
			actor = "local-user"
		}
		token, err := MintToken(auth.JWTSecret, actor, input.Body.Role, 24*time.Hour)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Token string `json:"token"`
			} `json:"body"`
		}{}
		out.Body.Token = token
		return out, nil
	})
}

func registerProjects(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List project ids",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []string `json:"body"`
	}, error) {
		seen := map[string]bool{}
		var ids []string
		for _, id := range cfg.Projects {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		for _, id := range cfg.Store.ProjectIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		return &struct {
			Body []string `json:"body"`
		}{Body: ids}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-data",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/data",
		Summary:     "Full project data snapshot",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.ProjectData `json:"body"`
	}, error) {
		return &struct {
			Body domain.ProjectData `json:"body"`
		}{Body: cfg.Store.GetProjectData(input.ProjectID)}, nil
	})
}

func registerRecords(api huma.API, e *workspace.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Sort      string `query:"sort"`
		Dir       string `query:"dir" enum:"asc,desc,"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		tasks := e.Store.GetProjectData(input.ProjectID).Tasks
		field, dir := sortOrDefault(domain.KindTask, input.Sort, input.Dir)
		workspace.SortTasks(tasks, field, dir)
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "save-task",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Create or update a task",
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string      `path:"project_id"`
		Body      domain.Task `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.SaveTask(role, input.ProjectID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-labor",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/labor",
		Summary:     "List labor entries",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Sort      string `query:"sort"`
		Dir       string `query:"dir" enum:"asc,desc,"`
	}) (*struct {
		Body []domain.Labor `json:"body"`
	}, error) {
		labor := e.Store.GetProjectData(input.ProjectID).Labor
		field, dir := sortOrDefault(domain.KindLabor, input.Sort, input.Dir)
		workspace.SortLabor(labor, field, dir)
		return &struct {
			Body []domain.Labor `json:"body"`
		}{Body: labor}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "save-labor",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/labor",
		Summary:       "Create or update a labor entry",
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string       `path:"project_id"`
		Body      domain.Labor `json:"body"`
	}) (*struct {
		Body domain.Labor `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.SaveLabor(role, input.ProjectID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Labor `json:"body"`
		}{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-materials",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/materials",
		Summary:     "List material entries",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Sort      string `query:"sort"`
		Dir       string `query:"dir" enum:"asc,desc,"`
	}) (*struct {
		Body []domain.Material `json:"body"`
	}, error) {
		materials := e.Store.GetProjectData(input.ProjectID).Materials
		field, dir := sortOrDefault(domain.KindMaterial, input.Sort, input.Dir)
		workspace.SortMaterials(materials, field, dir)
		return &struct {
			Body []domain.Material `json:"body"`
		}{Body: materials}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "save-material",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/materials",
		Summary:       "Create or update a material entry",
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string          `path:"project_id"`
		Body      domain.Material `json:"body"`
	}) (*struct {
		Body domain.Material `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.SaveMaterial(role, input.ProjectID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Material `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-record",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}/records/{kind}/{id}",
		Summary:     "Two-phase record delete (first call arms, second commits)",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Kind      string `path:"kind" enum:"tasks,labor,materials"`
		ID        string `path:"id"`
	}) (*struct {
		Body workspace.DeleteOutcome `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if !validKind(input.Kind) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "unknown record kind "+input.Kind, nil)
		}
		outcome, err := e.RequestDelete(ctx, role, input.ProjectID, input.Kind, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body workspace.DeleteOutcome `json:"body"`
		}{Body: outcome}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-delete",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/records/{kind}/cancel-delete",
		Summary:     "Disarm a pending record delete",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Kind      string `path:"kind" enum:"tasks,labor,materials"`
	}) (*struct {
		Body workspace.DeleteOutcome `json:"body"`
	}, error) {
		if _, authErr := roleFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		e.CancelDelete(input.ProjectID, input.Kind)
		return &struct {
			Body workspace.DeleteOutcome `json:"body"`
		}{Body: workspace.DeleteOutcome{}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-paid",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/records/{kind}/{id}/paid",
		Summary:     "Toggle the paid flag on a record",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Kind      string `path:"kind" enum:"tasks,labor,materials"`
		ID        string `path:"id"`
	}) (*struct {
		Body struct {
			Paid bool `json:"paid"`
		} `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		paid, err := e.TogglePaid(role, input.ProjectID, input.Kind, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Paid bool `json:"paid"`
			} `json:"body"`
		}{}
		out.Body.Paid = paid
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-received",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/materials/{id}/received",
		Summary:     "Toggle the received flag on a material",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
	}) (*struct {
		Body struct {
			Received bool `json:"received"`
		} `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		received, err := e.ToggleReceived(role, input.ProjectID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Received bool `json:"received"`
			} `json:"body"`
		}{}
		out.Body.Received = received
		return out, nil
	})
}

func sortOrDefault(kind, field, dir string) (string, string) {
	defField, defDir := workspace.DefaultSort(kind)
	if field == "" {
		return defField, defDir
	}
	if dir == "" {
		dir = workspace.Asc
	}
	return field, dir
}

func registerCSV(api huma.API, e *workspace.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "export-csv",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/records/{kind}/export",
		Summary:     "Export a record sequence as CSV",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Kind      string `path:"kind" enum:"tasks,labor,materials"`
	}) (*struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}, error) {
		text, err := e.ExportCSV(input.ProjectID, input.Kind)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType string `header:"Content-Type"`
			Body        []byte
		}{ContentType: "text/csv", Body: []byte(text)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import-csv",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/records/{kind}/import",
		Summary:     "Import CSV rows as new records",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Kind      string `path:"kind" enum:"tasks,labor,materials"`
		Body      struct {
			Text string `json:"text"`
		} `json:"body"`
	}) (*struct {
		Body struct {
			Imported int `json:"imported"`
		} `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := e.ImportCSV(role, input.ProjectID, input.Kind, input.Body.Text)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Imported int `json:"imported"`
			} `json:"body"`
		}{}
		out.Body.Imported = n
		return out, nil
	})
}

func registerTotals(api huma.API, s *store.Store) {
	parseRef := func(ref string) (time.Time, huma.StatusError) {
		if ref == "" {
			return time.Now().UTC(), nil
		}
		t, err := time.Parse("2006-01-02", ref)
		if err != nil {
			return time.Time{}, newAPIError(http.StatusBadRequest, "bad_request", "invalid ref date", map[string]any{"ref": ref})
		}
		return t, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "project-weekly-totals",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/totals/weekly",
		Summary:     "Weekly paid/unpaid totals for one project",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Ref       string `query:"ref"`
	}) (*struct {
		Body store.WeeklyTotals `json:"body"`
	}, error) {
		ref, herr := parseRef(input.Ref)
		if herr != nil {
			return nil, herr
		}
		totals := store.ComputeWeeklyTotals(s.GetProjectData(input.ProjectID), ref)
		return &struct {
			Body store.WeeklyTotals `json:"body"`
		}{Body: totals}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "all-weekly-totals",
		Method:      http.MethodGet,
		Path:        "/totals/weekly",
		Summary:     "Weekly paid/unpaid totals across all projects",
	}, func(ctx context.Context, input *struct {
		Ref string `query:"ref"`
	}) (*struct {
		Body store.WeeklyTotals `json:"body"`
	}, error) {
		ref, herr := parseRef(input.Ref)
		if herr != nil {
			return nil, herr
		}
		totals := store.ComputeAllProjectsWeeklyTotals(s.AllProjects(), ref)
		return &struct {
			Body store.WeeklyTotals `json:"body"`
		}{Body: totals}, nil
	})
}

func registerCurrency(api huma.API, f currency.Formatter) {
	huma.Register(api, huma.Operation{
		OperationID: "format-amount",
		Method:      http.MethodGet,
		Path:        "/currency/format",
		Summary:     "Format a base-currency amount for display",
	}, func(ctx context.Context, input *struct {
		Amount   float64 `query:"amount"`
		Currency string  `query:"currency"`
	}) (*struct {
		Body struct {
			Display string `json:"display"`
		} `json:"body"`
	}, error) {
		out := &struct {
			Body struct {
				Display string `json:"display"`
			} `json:"body"`
		}{}
		out.Body.Display = f.Format(input.Amount, input.Currency)
		return out, nil
	})
}

func registerReceipts(api huma.API, svc *receipt.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "extract-receipt",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/materials/receipt",
		Summary:     "Extract material drafts from a receipt photo",
		Errors:      []int{http.StatusBadRequest, http.StatusBadGateway},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			Image string `json:"image"`
			Name  string `json:"name,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body struct {
			Items []receipt.Draft `json:"items"`
		} `json:"body"`
	}, error) {
		if _, authErr := roleFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		drafts, err := svc.Extract(ctx, input.Body.Image)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Items []receipt.Draft `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = drafts
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "commit-receipt",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/materials/receipt/commit",
		Summary:     "Append selected receipt drafts as material records",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Body      struct {
			Image string          `json:"image,omitempty"`
			Name  string          `json:"name,omitempty"`
			Items []receipt.Draft `json:"items"`
		} `json:"body"`
	}) (*struct {
		Body struct {
			Materials []domain.Material `json:"materials"`
		} `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		saved, err := svc.Commit(ctx, role, input.ProjectID, input.Body.Image, input.Body.Name, input.Body.Items)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Materials []domain.Material `json:"materials"`
			} `json:"body"`
		}{}
		out.Body.Materials = saved
		return out, nil
	})
}

func registerAttachments(api huma.API, r attach.Resolver) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-attachment",
		Method:      http.MethodPost,
		Path:        "/attachments/resolve",
		Summary:     "Resolve an attachment to a displayable URL",
	}, func(ctx context.Context, input *struct {
		Body struct {
			Attachment *domain.Attachment `json:"attachment,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body attach.Resolution `json:"body"`
	}, error) {
		res := r.Await(ctx, input.Body.Attachment)
		return &struct {
			Body attach.Resolution `json:"body"`
		}{Body: res}, nil
	})
}

func registerBlobs(api huma.API, blobs blob.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "put-blob",
		Method:      http.MethodPut,
		Path:        "/blobs/{key}",
		Summary:     "Store an attachment payload",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Key  string `path:"key"`
		Body struct {
			Payload string `json:"payload"`
			Name    string `json:"name,omitempty"`
		} `json:"body"`
	}) (*struct{}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := workspace.RequireAdmin(role, "blob save"); err != nil {
			return nil, handleError(err)
		}
		if err := blobs.Save(ctx, input.Key, input.Body.Payload, input.Body.Name); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-blob",
		Method:      http.MethodGet,
		Path:        "/blobs/{key}",
		Summary:     "Fetch an attachment payload",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Key string `path:"key"`
	}) (*struct {
		Body struct {
			Payload string `json:"payload"`
		} `json:"body"`
	}, error) {
		payload, err := blobs.Get(ctx, input.Key)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Payload string `json:"payload"`
			} `json:"body"`
		}{}
		out.Body.Payload = payload
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-blob",
		Method:      http.MethodDelete,
		Path:        "/blobs/{key}",
		Summary:     "Delete an attachment payload",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Key string `path:"key"`
	}) (*struct{}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := workspace.RequireAdmin(role, "blob delete"); err != nil {
			return nil, handleError(err)
		}
		if err := blobs.Delete(ctx, input.Key); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerBlog(api huma.API, m *blog.Manager) {
	huma.Register(api, huma.Operation{
		OperationID: "list-posts",
		Method:      http.MethodGet,
		Path:        "/blog/posts",
		Summary:     "List blog posts",
	}, func(ctx context.Context, input *struct {
		Published bool `query:"published"`
	}) (*struct {
		Body []domain.BlogPost `json:"body"`
	}, error) {
		return &struct {
			Body []domain.BlogPost `json:"body"`
		}{Body: m.List(input.Published)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-post",
		Method:      http.MethodGet,
		Path:        "/blog/posts/{id}",
		Summary:     "Get one blog post with rendered body",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body struct {
			Post domain.BlogPost `json:"post"`
			HTML string          `json:"html"`
		} `json:"body"`
	}, error) {
		p, err := m.Get(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &struct {
			Body struct {
				Post domain.BlogPost `json:"post"`
				HTML string          `json:"html"`
			} `json:"body"`
		}{}
		out.Body.Post = p
		out.Body.HTML = blog.RenderBody(p.Body)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "save-post",
		Method:        http.MethodPost,
		Path:          "/blog/posts",
		Summary:       "Create or update a blog post",
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body domain.BlogPost `json:"body"`
	}) (*struct {
		Body domain.BlogPost `json:"body"`
	}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := m.Save(role, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.BlogPost `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-post",
		Method:      http.MethodDelete,
		Path:        "/blog/posts/{id}",
		Summary:     "Delete a blog post",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		role, authErr := roleFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := m.Delete(role, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
