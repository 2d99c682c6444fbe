package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptDefault(t *testing.T) {
	assert.Equal(t, DefaultPrompt, BuildPrompt(nil, nil))
}

func TestBuildPromptFromTemplate(t *testing.T) {
	got := BuildPrompt(nil, []string{"barang", "harga"})
	assert.Contains(t, got, "barang, harga")
	assert.Contains(t, got, "JSON array")
}

func TestBuildPromptCustomWins(t *testing.T) {
	custom := "list every line item as json"
	assert.Equal(t, custom, BuildPrompt(&custom, []string{"barang"}))

	blank := "   "
	assert.NotEqual(t, blank, BuildPrompt(&blank, []string{"barang"}))
}
