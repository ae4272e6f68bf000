package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltmesh/prodsim/core/factory"
	infrasolver "github.com/voltmesh/prodsim/infra/solver"
)

func TestSimplexRegisteredByDefault(t *testing.T) {
	s, err := NewSolver(factory.ModuleConfig{Type: "simplex"})
	require.NoError(t, err)
	_, ok := s.(*infrasolver.Simplex)
	assert.True(t, ok)
}

func TestEmptyTypeDefaultsToSimplex(t *testing.T) {
	s, err := NewSolver(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSimplexOptionsDecoded(t *testing.T) {
	s, err := NewSolver(factory.ModuleConfig{
		Type: "simplex",
		Conf: map[string]any{"tolerance": 1e-9, "verbosity": 1},
	})
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = NewSolver(factory.ModuleConfig{
		Type: "simplex",
		Conf: map[string]any{"tolerance": "loose"},
	})
	assert.Error(t, err)
}

func TestUnknownBackendRejected(t *testing.T) {
	_, err := NewSolver(factory.ModuleConfig{Type: "gurobi"})
	assert.Error(t, err)
}
