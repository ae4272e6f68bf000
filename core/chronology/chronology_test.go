package chronology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterStageResolvesLastSolvedSource(t *testing.T) {
	c := NewInterStage(map[string]string{"ed": "uc"})

	_, ok := c.ResolveInitialCondition("ed", 0, map[string]int{})
	assert.False(t, ok, "no prior source solution at step 0")

	src, ok := c.ResolveInitialCondition("ed", 3, map[string]int{"uc": 2})
	require.True(t, ok)
	assert.Equal(t, Source{Stage: "uc", Step: 2}, src)
}

func TestInterStageUnpairedStage(t *testing.T) {
	c := NewInterStage(map[string]string{"ed": "uc"})
	_, ok := c.ResolveInitialCondition("uc", 1, map[string]int{"uc": 0})
	assert.False(t, ok)
}

func TestIntraStageResolvesPreviousStep(t *testing.T) {
	c := NewIntraStage()

	_, ok := c.ResolveInitialCondition("uc", 0, map[string]int{})
	assert.False(t, ok, "stage defaults at step 0")

	src, ok := c.ResolveInitialCondition("uc", 2, map[string]int{"uc": 1})
	require.True(t, ok)
	assert.Equal(t, Source{Stage: "uc", Step: 1, Terminal: true}, src)

	_, ok = c.ResolveInitialCondition("uc", 2, map[string]int{"uc": 0})
	assert.False(t, ok, "gap in solved steps resolves to defaults")
}

func TestResolutionIsDeterministic(t *testing.T) {
	c := NewInterStage(map[string]string{"ed": "uc"})
	last := map[string]int{"uc": 4}
	a, okA := c.ResolveInitialCondition("ed", 5, last)
	b, okB := c.ResolveInitialCondition("ed", 5, last)
	assert.Equal(t, okA, okB)
	assert.Equal(t, a, b)
}
