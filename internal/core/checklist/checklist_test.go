package checklist

import (
	"testing"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForKnownTemplate(t *testing.T) {
	items := For(workitem.CategoryService, workitem.ActionNew)

	require.NotEmpty(t, items)
	assert.Equal(t, "Define service purpose and requirements", items[0].Text)
	for _, item := range items {
		assert.False(t, item.Done, "templates start unchecked")
		assert.NotEmpty(t, item.Text)
	}
}

func TestForUnknownCombinationFallsBack(t *testing.T) {
	items := For(workitem.Category("mystery"), workitem.ActionType("surprise"))

	require.Len(t, items, 2)
	assert.Equal(t, "Complete the work", items[0].Text)
	assert.Equal(t, "Document changes", items[1].Text)
}

func TestForNeverEmpty(t *testing.T) {
	for _, category := range workitem.Categories() {
		for _, action := range workitem.ActionTypes() {
			items := For(category, action)
			assert.NotEmpty(t, items, "%s/%s", category, action)
		}
	}
}

func TestForReturnsFreshSlices(t *testing.T) {
	a := For(workitem.CategoryService, workitem.ActionNew)
	b := For(workitem.CategoryService, workitem.ActionNew)

	a[0].Done = true
	assert.False(t, b[0].Done, "callers must not share checklist state")
}
