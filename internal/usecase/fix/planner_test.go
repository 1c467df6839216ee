package fix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutradev/lutra/internal/domain"
	"github.com/lutradev/lutra/internal/usecase/fix"
)

func TestPlan_GroupsByPath(t *testing.T) {
	accepted := []domain.ReconciledComment{
		{Path: "b.go", Line: 3, Body: "check error"},
		{Path: "a.go", Line: 1, Body: "rename"},
		{Path: "b.go", Line: 8, Body: "close body"},
	}

	plan := fix.Plan(accepted)

	require.Len(t, plan, 2)
	require.Len(t, plan["b.go"], 2)
	assert.Equal(t, "check error", plan["b.go"][0].Body)
	assert.Equal(t, "close body", plan["b.go"][1].Body)
	require.Len(t, plan["a.go"], 1)
}

func TestPlan_Empty(t *testing.T) {
	assert.Empty(t, fix.Plan(nil))
}
