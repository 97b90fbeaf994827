package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderImageProducesPNG(t *testing.T) {
	layout := Compile(simpleTrace(), nil)

	png, err := RenderImage(layout)
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestRenderImageNestedStructure(t *testing.T) {
	layout := Compile(workflowTrace(), nil)

	png, err := RenderImage(layout)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}
