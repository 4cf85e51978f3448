package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultRemoteTimeout bounds one collaborator call. Sessions flush a chunk
// every few seconds; a classifier slower than this is treated as down. Keep
// in sync with the classifier config's remote_timeout default.
const DefaultRemoteTimeout = 5 * time.Second

// remoteRequest is the wire shape sent to the collaborator.
type remoteRequest struct {
	Transcript      string  `json:"transcript"`
	PreviousSummary *string `json:"previousSummary"`
}

// remoteResponse is the wire shape returned by the collaborator. All fields
// are optional; missing ones get defaults.
type remoteResponse struct {
	Summary   *string `json:"summary"`
	IsOnTrack *bool   `json:"isOnTrack"`
	Topic     *string `json:"topic"`
}

// Remote calls an external classification service over HTTP. Any transport
// error, non-2xx status, or malformed body is returned as an error so the
// failover chain can move on.
type Remote struct {
	url    string
	client *http.Client
}

var _ Classifier = (*Remote)(nil)

// NewRemote creates a Remote classifier posting to url. A zero timeout means
// [DefaultRemoteTimeout].
func NewRemote(url string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &Remote{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Classify implements Classifier.
func (r *Remote) Classify(ctx context.Context, chunk, previousSummary string) (Result, error) {
	reqBody := remoteRequest{Transcript: chunk}
	if previousSummary != "" {
		reqBody.PreviousSummary = &previousSummary
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("classify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("classify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("classify: call collaborator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("classify: collaborator returned status %d", resp.StatusCode)
	}

	var body remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("classify: decode response: %w", err)
	}

	// Tolerate missing fields: summary falls back to the local token
	// summary, isOnTrack defaults to true.
	result := Result{OnTrack: true, Summary: Summarize(chunk)}
	if body.IsOnTrack != nil {
		result.OnTrack = *body.IsOnTrack
	}
	if body.Summary != nil && *body.Summary != "" {
		result.Summary = *body.Summary
	}
	return result, nil
}
