package plugins

import (
	"github.com/voltmesh/prodsim/core/factory"
	"github.com/voltmesh/prodsim/core/solver"
	infrasolver "github.com/voltmesh/prodsim/infra/solver"
)

func init() {
	if err := RegisterSolver("simplex", func(conf map[string]any) (solver.Solver, error) {
		var opts infrasolver.Options
		if err := factory.Decode(conf, &opts); err != nil {
			return nil, err
		}
		return infrasolver.NewSimplexWith(opts), nil
	}); err != nil {
		panic(err)
	}
}
