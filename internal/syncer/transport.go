package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
)

// UserIDHeader carries the caller's user id to the sync server.
const UserIDHeader = "X-User-ID"

// HTTPTransport posts messages to a sync server's /api/sync endpoint.
type HTTPTransport struct {
	baseURL string
	userID  string
	client  *http.Client
}

// NewHTTPTransport creates a transport for the server at baseURL.
func NewHTTPTransport(baseURL, userID string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		client:  client,
	}
}

// Exchange implements Transport.
func (t *HTTPTransport) Exchange(ctx context.Context, msg Message) (Message, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Message{}, fmt.Errorf("Exchange: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/sync", bytes.NewReader(body))
	if err != nil {
		return Message{}, fmt.Errorf("Exchange: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(UserIDHeader, t.userID)

	resp, err := t.client.Do(req)
	if err != nil {
		return Message{}, &apperr.SyncError{Op: "post", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Message{}, &apperr.SyncError{Op: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Message{}, &apperr.SyncError{
			Op:  "post",
			Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		return Message{}, &apperr.SyncError{Op: "decode response", Err: err}
	}
	return out, nil
}

// DirectTransport calls a Reconciler in the same process.
type DirectTransport struct {
	Reconciler *Reconciler
	UserID     string
}

// Exchange implements Transport.
func (t DirectTransport) Exchange(ctx context.Context, msg Message) (Message, error) {
	return t.Reconciler.Sync(ctx, t.UserID, msg)
}
