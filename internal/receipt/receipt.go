// Package receipt proposes material records extracted from a
// photographed receipt by an external vision inference service. It only
// presents what the service returns; nothing is committed without
// explicit confirmation.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"siteledger/internal/blob"
	"siteledger/internal/domain"
	"siteledger/internal/workspace"
)

const extractionPrompt = `Extract every line item from this purchase receipt.
Return JSON only, matching this schema exactly:
{"items":[{"item":"<name>","qty":<number>,"unitCost":<number>,"totalCost":<number>}]}
Use 1 for qty when the receipt does not state a quantity.`

// ExtractError is a human-readable extraction failure. The caller
// falls back to manual entry; nothing is retried.
type ExtractError struct {
	Message string
}

func (e ExtractError) Error() string { return e.Message }

// Draft is one proposed material row awaiting review. Every extracted
// row starts selected with category Other; any field may be edited
// before commit.
type Draft struct {
	Item      string  `json:"item"`
	Qty       float64 `json:"qty"`
	UnitCost  float64 `json:"unit_cost"`
	TotalCost float64 `json:"total_cost"`
	Category  string  `json:"category"`
	Selected  bool    `json:"selected"`
}

// Service calls the external inference endpoint and commits reviewed
// drafts to the workspace.
type Service struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
	Blobs   blob.Store
	Engine  *workspace.Engine
	Log     *slog.Logger
	NewKey  func() string
}

// New returns a Service over the given engine and blob store.
func New(baseURL, apiKey, model string, eng *workspace.Engine, blobs blob.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{},
		Blobs:   blobs,
		Engine:  eng,
		Log:     logger,
		NewKey:  func() string { return "receipt-" + uuid.NewString() },
	}
}

type extractedItem struct {
	Item      string  `json:"item"`
	Qty       float64 `json:"qty"`
	UnitCost  float64 `json:"unitCost"`
	TotalCost float64 `json:"totalCost"`
}

// Extract submits the receipt image with the fixed extraction prompt
// and declared output schema, and returns the proposed drafts. Any
// response not matching the schema is a failure.
func (s *Service) Extract(ctx context.Context, imageBase64 string) ([]Draft, error) {
	if s.BaseURL == "" {
		return nil, ExtractError{Message: "receipt extraction is not configured"}
	}
	if imageBase64 == "" {
		return nil, ExtractError{Message: "receipt image is required"}
	}
	content, err := s.chatWithImage(ctx, extractionPrompt, imageBase64)
	if err != nil {
		return nil, ExtractError{Message: fmt.Sprintf("receipt extraction failed: %v", err)}
	}
	var parsed struct {
		Items []extractedItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return nil, ExtractError{Message: "receipt extraction returned an unreadable response"}
	}
	if parsed.Items == nil {
		return nil, ExtractError{Message: "receipt extraction returned no items"}
	}
	drafts := make([]Draft, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		drafts = append(drafts, Draft{
			Item:      it.Item,
			Qty:       it.Qty,
			UnitCost:  it.UnitCost,
			TotalCost: it.TotalCost,
			Category:  "Other",
			Selected:  true,
		})
	}
	return drafts, nil
}

func (s *Service) chatWithImage(ctx context.Context, prompt, imageBase64 string) (string, error) {
	imageURL := imageBase64
	if !strings.HasPrefix(imageURL, "data:") {
		imageURL = "data:image/jpeg;base64," + imageURL
	}
	body := map[string]any{
		"model": s.Model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
					{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
				},
			},
		},
		"response_format": map[string]string{"type": "json_object"},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("inference status %d: %s", resp.StatusCode, data)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return result.Choices[0].Message.Content, nil
}

// Commit appends the selected drafts to the project's materials, each
// as an independent record. The receipt image is stored once in the
// blob store and referenced by every committed row.
func (s *Service) Commit(ctx context.Context, role, projectID, imageBase64, name string, drafts []Draft) ([]domain.Material, error) {
	if err := workspace.RequireAdmin(role, "receipt commit"); err != nil {
		return nil, err
	}
	selected := make([]Draft, 0, len(drafts))
	for _, d := range drafts {
		if d.Selected {
			selected = append(selected, d)
		}
	}
	if len(selected) == 0 {
		return []domain.Material{}, nil
	}

	var att *domain.Attachment
	if imageBase64 != "" {
		key := s.NewKey()
		if err := s.Blobs.Save(ctx, key, imageBase64, name); err != nil {
			s.Log.Warn("store receipt image", "key", key, "error", err)
		}
		att = &domain.Attachment{Kind: domain.AttachStore, Key: key, Name: name}
	}

	out := make([]domain.Material, 0, len(selected))
	for _, d := range selected {
		category := d.Category
		if category == "" {
			category = "Other"
		}
		m := domain.Material{
			Item:       d.Item,
			Category:   category,
			Qty:        d.Qty,
			UnitCost:   d.UnitCost,
			Attachment: att,
		}
		saved, err := s.Engine.SaveMaterial(role, projectID, m)
		if err != nil {
			return out, err
		}
		out = append(out, saved)
	}
	return out, nil
}
