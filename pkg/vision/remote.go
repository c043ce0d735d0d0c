package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/teslashibe/go-sensory/internal/httpc"
)

const providerRemote = "remote"

// AnalyzeRequest is the body accepted by /api/analyze-crowd.
type AnalyzeRequest struct {
	Image string `json:"image"`
}

// AnalyzeResponse is the body returned by /api/analyze-crowd.
type AnalyzeResponse struct {
	Success bool    `json:"success"`
	Data    *Report `json:"data,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Remote posts frames to another go-sensory server's /api/analyze-crowd.
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote creates an enricher for the endpoint at url.
func NewRemote(url string, client *http.Client) *Remote {
	if client == nil {
		client = httpc.Client
	}
	return &Remote{url: url, client: client}
}

// Analyze posts {image: dataURL} and unwraps {success, data}.
func (r *Remote) Analyze(ctx context.Context, jpeg []byte) (*Report, error) {
	if len(jpeg) == 0 {
		return nil, WrapError(providerRemote, ErrNoImage)
	}

	body, err := httpc.PostJSON(ctx, r.client, r.url, AnalyzeRequest{Image: EncodeDataURL("image/jpeg", jpeg)}, nil)
	if err != nil {
		return nil, WrapError(providerRemote, err)
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, WrapError(providerRemote, fmt.Errorf("decode response: %w", err))
	}
	if !resp.Success || resp.Data == nil {
		msg := resp.Error
		if msg == "" {
			msg = "analysis failed"
		}
		return nil, WrapError(providerRemote, fmt.Errorf("%s", msg))
	}
	return resp.Data, nil
}

// Verify Remote implements Enricher at compile time.
var _ Enricher = (*Remote)(nil)
