package forgeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/generator"
	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
)

// ForgeAPIEngine implements the Engine interface against the hosted render
// API. A render is a single synchronous POST; the API is heavily
// rate-limited, which is why the worker runs with low concurrency.
type ForgeAPIEngine struct {
	client     *http.Client
	apiBaseURL string
}

// New creates a new instance of the ForgeAPIEngine.
func New(baseURL string) *ForgeAPIEngine {
	return &ForgeAPIEngine{
		client:     &http.Client{Timeout: 40 * time.Second},
		apiBaseURL: baseURL,
	}
}

// GetInfo returns static information about this engine.
func (e *ForgeAPIEngine) GetInfo() models.EngineInfo {
	return models.EngineInfo{
		ID:   "forgeapi",
		Name: "Forge Render API",
	}
}

type renderRequestBody struct {
	Payload json.RawMessage   `json:"payload"`
	Params  map[string]string `json:"params"`
}

type renderResponseBody struct {
	ResultRef string `json:"result_ref"`
	Error     string `json:"error"`
}

// Render submits one item to the remote API and waits for the result.
func (e *ForgeAPIEngine) Render(ctx context.Context, req models.RenderRequest) (string, error) {
	body, err := json.Marshal(renderRequestBody{
		Payload: json.RawMessage(req.Payload),
		Params:  req.Params,
	})
	if err != nil {
		return "", generator.NewRenderError(generator.KindPermanent, fmt.Errorf("could not encode render request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v1/render", e.apiBaseURL), bytes.NewReader(body))
	if err != nil {
		return "", generator.NewRenderError(generator.KindPermanent, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		// Connection failures and client timeouts are worth retrying.
		return "", generator.NewRenderError(generator.KindTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		kind := generator.KindFromStatusCode(resp.StatusCode)
		return "", generator.NewRenderError(kind, fmt.Errorf("render API returned %d: %s", resp.StatusCode, string(raw)))
	}

	var apiResp renderResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", generator.NewRenderError(generator.KindTransient, fmt.Errorf("could not decode render response: %w", err))
	}
	if apiResp.ResultRef == "" {
		return "", generator.NewRenderError(generator.KindPermanent, fmt.Errorf("render API returned no result: %s", apiResp.Error))
	}

	return apiResp.ResultRef, nil
}
