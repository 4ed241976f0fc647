package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGrounding(t *testing.T) {
	got := FromGrounding([]Reference{
		{Title: "Acme Dental", URI: "https://maps.example/acme"},
		{Title: "", URI: ""},
	})
	require.Len(t, got, 2)

	assert.Equal(t, "Acme Dental", got[0].Name)
	assert.Equal(t, "https://maps.example/acme", got[0].URI)
	assert.Equal(t, DefaultAddress, got[0].Address)

	assert.Equal(t, DefaultName, got[1].Name)
	assert.Equal(t, DefaultURI, got[1].URI)

	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestFromGroundingEmpty(t *testing.T) {
	assert.Empty(t, FromGrounding(nil))
}

func TestFind(t *testing.T) {
	list := FromGrounding([]Reference{{Title: "A"}, {Title: "B"}})
	l, ok := Find(list, list[1].ID)
	require.True(t, ok)
	assert.Equal(t, "B", l.Name)

	_, ok = Find(list, "missing")
	assert.False(t, ok)
}
