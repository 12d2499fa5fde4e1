package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"estatehub/pkg/models"
)

// RemoteStore sends images to an external upload service. Each Put or Delete
// is a single round trip carrying the whole batch.
type RemoteStore struct {
	Endpoint string
	Client   *http.Client
}

func NewRemoteStore(endpoint string, timeout time.Duration) *RemoteStore {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RemoteStore{
		Endpoint: strings.TrimSpace(endpoint),
		Client:   &http.Client{Timeout: timeout},
	}
}

type remoteFile struct {
	Name    string `json:"name"`
	DataURL string `json:"dataURL"`
}

type remoteRequest struct {
	Action string       `json:"action"`
	Files  []remoteFile `json:"files,omitempty"`
	IDs    []string     `json:"ids,omitempty"`
}

type remoteItem struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

type remoteResponse struct {
	OK    *bool        `json:"ok"`
	Error string       `json:"error"`
	Items []remoteItem `json:"items"`
}

func (s *RemoteStore) Put(ctx context.Context, files []Upload) ([]models.ImageRef, error) {
	if len(files) == 0 {
		return nil, nil
	}

	req := remoteRequest{Action: "upload", Files: make([]remoteFile, 0, len(files))}
	for _, f := range files {
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		req.Files = append(req.Files, remoteFile{Name: f.Name, DataURL: EncodeDataURL(ct, f.Data)})
	}

	resp, err := s.call(ctx, req)
	if err != nil {
		return nil, err
	}

	refs := make([]models.ImageRef, 0, len(resp.Items))
	complete := len(resp.Items) == len(files)
	for _, it := range resp.Items {
		if it.ID == "" && it.URL == "" {
			complete = false
			continue
		}
		refs = append(refs, models.ImageRef{ID: it.ID, URL: it.URL})
	}
	if !complete {
		// order no longer maps onto the selected files, so nothing is kept
		s.discard(ctx, refs)
		return nil, fmt.Errorf("upload: got %d usable items for %d files: %w", len(refs), len(files), models.ErrTransient)
	}
	return refs, nil
}

// discard deletes files a failed batch left behind on the remote side.
func (s *RemoteStore) discard(ctx context.Context, refs []models.ImageRef) {
	if err := s.Delete(ctx, refs); err != nil {
		log.Printf("[assets] cleanup of %d uploaded files failed: %v", len(refs), err)
	}
}

// Resolve never touches the network.
func (s *RemoteStore) Resolve(_ context.Context, ref models.ImageRef) (string, error) {
	return remoteURL(ref.ID, ref.URL), nil
}

// Delete removes remote files by id. References without an id are skipped:
// matching by URL is not attempted.
func (s *RemoteStore) Delete(ctx context.Context, refs []models.ImageRef) error {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ID != "" {
			ids = append(ids, ref.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := s.call(ctx, remoteRequest{Action: "delete", IDs: ids})
	return err
}

func (s *RemoteStore) call(ctx context.Context, payload remoteRequest) (*remoteResponse, error) {
	if s.Endpoint == "" {
		return nil, fmt.Errorf("upload endpoint is not configured: %w", models.ErrConfiguration)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", payload.Action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", payload.Action, models.ErrConfiguration)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w: %v", payload.Action, models.ErrTransient, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)

	var out remoteResponse
	decodeErr := json.Unmarshal(raw, &out)

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("%s: %w: %s (check the upload service sharing and access settings)", payload.Action, models.ErrPermission, msg)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, fmt.Errorf("%s: status %d: %w", payload.Action, res.StatusCode, models.ErrTransient)
	case decodeErr != nil || out.OK == nil:
		return nil, fmt.Errorf("%s: malformed response: %w", payload.Action, models.ErrTransient)
	case !*out.OK:
		return nil, fmt.Errorf("%s: remote error %q: %w", payload.Action, out.Error, models.ErrTransient)
	}
	return &out, nil
}
