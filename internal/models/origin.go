package models

import (
	"encoding/json"
	"fmt"
)

// OriginContext carries everything needed to (re-)launch a job's worker:
// which collection of items to operate on, which engine renders them, and the
// engine parameters. Each job type has its own strongly-typed context; the
// decoder registry below dispatches on the job type at launch or resume time.
type OriginContext interface {
	JobType() JobType
	EngineID() string
	RenderParams() map[string]string
}

// FaceApplyContext resumes a face application batch.
type FaceApplyContext struct {
	CollectionID int64  `json:"collection_id"`
	FaceRef      string `json:"face_ref"`
	Engine       string `json:"engine"`
	Strength     string `json:"strength,omitempty"`
}

func (c FaceApplyContext) JobType() JobType { return JobTypeFaceApply }
func (c FaceApplyContext) EngineID() string { return c.Engine }
func (c FaceApplyContext) RenderParams() map[string]string {
	return map[string]string{"face_ref": c.FaceRef, "strength": c.Strength}
}

// ClayConvertContext resumes a clay-model conversion batch.
type ClayConvertContext struct {
	CollectionID int64  `json:"collection_id"`
	Engine       string `json:"engine"`
	Detail       string `json:"detail,omitempty"`
}

func (c ClayConvertContext) JobType() JobType { return JobTypeClayConvert }
func (c ClayConvertContext) EngineID() string { return c.Engine }
func (c ClayConvertContext) RenderParams() map[string]string {
	return map[string]string{"detail": c.Detail}
}

// PoseRegenContext resumes a pose regeneration batch.
type PoseRegenContext struct {
	CollectionID int64  `json:"collection_id"`
	Engine       string `json:"engine"`
	PoseSetID    string `json:"pose_set_id"`
	Seed         int64  `json:"seed,omitempty"`
}

func (c PoseRegenContext) JobType() JobType { return JobTypePoseRegen }
func (c PoseRegenContext) EngineID() string { return c.Engine }
func (c PoseRegenContext) RenderParams() map[string]string {
	return map[string]string{"pose_set_id": c.PoseSetID, "seed": fmt.Sprintf("%d", c.Seed)}
}

var originDecoders = map[JobType]func([]byte) (OriginContext, error){
	JobTypeFaceApply: func(raw []byte) (OriginContext, error) {
		var c FaceApplyContext
		return c, json.Unmarshal(raw, &c)
	},
	JobTypeClayConvert: func(raw []byte) (OriginContext, error) {
		var c ClayConvertContext
		return c, json.Unmarshal(raw, &c)
	},
	JobTypePoseRegen: func(raw []byte) (OriginContext, error) {
		var c PoseRegenContext
		return c, json.Unmarshal(raw, &c)
	},
}

// DecodeOriginContext parses a job's stored origin_context JSON into the
// typed context for its job type.
func DecodeOriginContext(jobType JobType, raw string) (OriginContext, error) {
	decode, ok := originDecoders[jobType]
	if !ok {
		return nil, fmt.Errorf("unknown job type '%s'", jobType)
	}
	ctx, err := decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode origin context for job type '%s': %w", jobType, err)
	}
	return ctx, nil
}

// EncodeOriginContext serializes a typed origin context for storage on a job.
func EncodeOriginContext(c OriginContext) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode origin context: %w", err)
	}
	return string(raw), nil
}
