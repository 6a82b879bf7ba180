package models_test

import (
	"testing"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOriginContextDispatchesOnJobType(t *testing.T) {
	raw := `{"collection_id":12,"face_ref":"faces/talent_042.png","engine":"forgeapi","strength":"0.8"}`
	octx, err := models.DecodeOriginContext(models.JobTypeFaceApply, raw)
	require.NoError(t, err)

	assert.Equal(t, models.JobTypeFaceApply, octx.JobType())
	assert.Equal(t, "forgeapi", octx.EngineID())
	assert.Equal(t, "faces/talent_042.png", octx.RenderParams()["face_ref"])
	assert.Equal(t, "0.8", octx.RenderParams()["strength"])
}

func TestDecodeOriginContextPoseRegen(t *testing.T) {
	raw := `{"collection_id":3,"engine":"mockforge","pose_set_id":"editorial-7","seed":42}`
	octx, err := models.DecodeOriginContext(models.JobTypePoseRegen, raw)
	require.NoError(t, err)

	assert.Equal(t, "mockforge", octx.EngineID())
	assert.Equal(t, "editorial-7", octx.RenderParams()["pose_set_id"])
	assert.Equal(t, "42", octx.RenderParams()["seed"])
}

func TestDecodeOriginContextRejectsUnknownType(t *testing.T) {
	_, err := models.DecodeOriginContext(models.JobType("teleport"), `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}

func TestDecodeOriginContextRejectsMalformedJSON(t *testing.T) {
	_, err := models.DecodeOriginContext(models.JobTypeClayConvert, `{not json`)
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := models.ClayConvertContext{CollectionID: 9, Engine: "forgeapi", Detail: "high"}
	raw, err := models.EncodeOriginContext(in)
	require.NoError(t, err)

	out, err := models.DecodeOriginContext(models.JobTypeClayConvert, raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
