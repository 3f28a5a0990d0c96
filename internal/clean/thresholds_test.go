package clean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadThresholds_OverridesOnlyGivenKeys(t *testing.T) {
	doc := `{"paragraph_min_length": 50, "batch_min_image_bytes": 90000}`
	thresholds, gates, err := LoadThresholds(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 50, thresholds.ParagraphMinLength)
	assert.Equal(t, DefaultThresholds().CleanedCharsMinGlobal, thresholds.CleanedCharsMinGlobal)
	assert.Equal(t, 90000, gates.Batch)
	assert.Equal(t, 2*1024, gates.Quick)
}

func TestLoadThresholds_EmptyDocumentKeepsDefaults(t *testing.T) {
	thresholds, gates, err := LoadThresholds(strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultThresholds(), thresholds)
	assert.Equal(t, ImageByteGates{Quick: 2 * 1024, Batch: 70 * 1024, Collection: 100 * 1024}, gates)
}

func TestLoadThresholds_RejectsInvalidJSON(t *testing.T) {
	_, _, err := LoadThresholds(strings.NewReader(`not json`))
	assert.Error(t, err)
}
