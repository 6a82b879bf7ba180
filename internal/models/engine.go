package models

import "context"

// EngineInfo contains static information about a render engine.
type EngineInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RenderRequest is the input for a single item render.
type RenderRequest struct {
	Payload string            // the work item's payload JSON
	Params  map[string]string // engine parameters from the job's origin context
}

// Engine defines the contract every render backend must implement. A render
// is an opaque, potentially slow, potentially rate-limited remote call; the
// worker only relies on a deterministic success/failure signal and
// classifiable error kinds.
type Engine interface {
	GetInfo() EngineInfo
	Render(ctx context.Context, req RenderRequest) (resultRef string, err error)
}
