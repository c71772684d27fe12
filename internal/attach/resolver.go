package attach

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"siteledger/internal/blob"
	"siteledger/internal/domain"
)

// State of an attachment resolution.
type State string

const (
	// Pending means a blob-store lookup is in flight; show a loading
	// placeholder.
	Pending State = "pending"
	// Resolved means URL holds a displayable image URL.
	Resolved State = "resolved"
	// Absent means there is nothing to display; show a placeholder.
	// Absent is terminal: missing blob keys are not retried.
	Absent State = "absent"
)

// Resolution is the displayable outcome for an attachment.
type Resolution struct {
	State State  `json:"state"`
	URL   string `json:"url,omitempty"`
}

// Resolver maps attachments to displayable image URLs.
type Resolver struct {
	Blobs blob.Store
	Log   *slog.Logger
}

// Resolve returns the synchronously known resolution. Image and drive
// kinds resolve immediately. Store kinds return Pending and deliver the
// final resolution on the returned channel; the channel is nil when no
// lookup was started. The lookup never blocks the caller and stops
// silently if ctx is canceled before it completes.
func (r Resolver) Resolve(ctx context.Context, att *domain.Attachment) (Resolution, <-chan Resolution) {
	if att == nil {
		return Resolution{State: Absent}, nil
	}
	switch att.Kind {
	case domain.AttachImage:
		if att.Data == "" {
			return Resolution{State: Absent}, nil
		}
		return Resolution{State: Resolved, URL: dataURL(att.Data)}, nil
	case domain.AttachDrive:
		if att.URL == "" {
			return Resolution{State: Absent}, nil
		}
		return Resolution{State: Resolved, URL: RewriteDriveURL(att.URL)}, nil
	case domain.AttachStore:
		if att.Key == "" {
			return Resolution{State: Absent}, nil
		}
		done := make(chan Resolution, 1)
		go r.lookup(ctx, att.Key, done)
		return Resolution{State: Pending}, done
	}
	return Resolution{State: Absent}, nil
}

func (r Resolver) lookup(ctx context.Context, key string, done chan<- Resolution) {
	payload, err := r.Blobs.Get(ctx, key)
	var res Resolution
	switch {
	case err == nil:
		res = Resolution{State: Resolved, URL: dataURL(payload)}
	case errors.Is(err, blob.ErrNotFound):
		res = Resolution{State: Absent}
	default:
		if r.Log != nil {
			r.Log.Warn("blob lookup", "key", key, "error", err)
		}
		res = Resolution{State: Absent}
	}
	select {
	case done <- res:
	case <-ctx.Done():
		// Consumer went away; drop the result.
	}
}

// Await is a convenience that resolves fully, blocking on a store-kind
// lookup until it completes or ctx is canceled.
func (r Resolver) Await(ctx context.Context, att *domain.Attachment) Resolution {
	res, done := r.Resolve(ctx, att)
	if res.State != Pending || done == nil {
		return res
	}
	select {
	case final := <-done:
		return final
	case <-ctx.Done():
		return Resolution{State: Pending}
	}
}

// RewriteDriveURL turns a Drive-style share URL into a direct-view URL
// by extracting the file id from the /file/d/<id> path segment. On
// parse failure the original URL is returned unchanged.
func RewriteDriveURL(raw string) string {
	const marker = "/file/d/"
	i := strings.Index(raw, marker)
	if i < 0 {
		return raw
	}
	rest := raw[i+len(marker):]
	id := rest
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		id = rest[:j]
	}
	if id == "" {
		return raw
	}
	return "https://drive.google.com/uc?export=view&id=" + id
}

func dataURL(payload string) string {
	if strings.HasPrefix(payload, "data:") {
		return payload
	}
	return "data:image/jpeg;base64," + payload
}
