package lp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/plateplan/backend/internal/domain"
)

// Status is the outcome reported by the solver backend.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusError      Status = "error"
)

// Solution is the result of one solver invocation. Values is populated only
// when Status is StatusOptimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    map[string]float64
}

// SimplexSolver solves minimization models with gonum's simplex
// implementation. The zero value is not usable; construct with
// NewSimplexSolver. A single solver is safe for concurrent use: each Solve
// call builds its own matrices and the shared runtime is immutable after
// its one-time initialization.
type SimplexSolver struct {
	tol      float64
	initOnce sync.Once
	initErr  error
}

// fallbackPivotTol is the explicit pivot tolerance used to re-solve models
// the library rejects at the configured tolerance.
const fallbackPivotTol = 1e-10

// NewSimplexSolver creates a solver. tol is the simplex pivot tolerance;
// pass 0 for the library default.
func NewSimplexSolver(tol float64) *SimplexSolver {
	return &SimplexSolver{tol: tol}
}

// Warmup initializes the shared runtime ahead of the first real request by
// solving a trivial one-variable program. It is idempotent and safe to call
// concurrently; Solve triggers the same initialization lazily.
func (s *SimplexSolver) Warmup() error {
	s.initOnce.Do(func() {
		c := []float64{1}
		g := mat.NewDense(2, 1, []float64{1, -1})
		h := []float64{1, 0}
		cn, an, bn := lp.Convert(c, g, h, nil, nil)
		if _, _, err := lp.Simplex(cn, an, bn, s.tol, nil); err != nil {
			s.initErr = fmt.Errorf("%w: warmup solve failed: %v", domain.ErrSolverUnavailable, err)
		}
	})
	return s.initErr
}

// Solve runs a single synchronous simplex invocation. Domain-level outcomes
// (infeasible, unbounded, numeric failure) are reported through the returned
// Status; the error return is reserved for host failures and malformed
// models.
func (s *SimplexSolver) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := s.Warmup(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	n := m.NumVariables()
	c, gData, h, aData, b := m.matrices()

	var gMat, aMat mat.Matrix
	if len(h) > 0 {
		gMat = mat.NewDense(len(h), n, gData)
	}
	if len(b) > 0 {
		aMat = mat.NewDense(len(b), n, aData)
	}

	cStd, aStd, bStd := lp.Convert(c, gMat, h, aMat, b)
	opt, xStd, err := lp.Simplex(cStd, aStd, bStd, s.tol, nil)
	if err != nil && !errors.Is(err, lp.ErrInfeasible) && s.tol != fallbackPivotTol {
		// On fully bounded models an unbounded or ill-conditioned report
		// means degenerate pivot selection, not a real model property.
		// Retry once with an explicit pivot tolerance before surfacing a
		// status; genuinely unbounded models fail the same way again.
		opt, xStd, err = lp.Simplex(cStd, aStd, bStd, fallbackPivotTol, nil)
	}
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return &Solution{Status: StatusInfeasible}, nil
		case errors.Is(err, lp.ErrUnbounded):
			return &Solution{Status: StatusUnbounded}, nil
		default:
			log.Printf("[LP] simplex failed: %v", err)
			return &Solution{Status: StatusError}, nil
		}
	}

	// Convert splits each free variable x into x+ - x-; recover originals.
	values := make(map[string]float64, n)
	for i, v := range m.vars {
		values[v.Name] = xStd[i] - xStd[n+i]
	}

	return &Solution{Status: StatusOptimal, Objective: opt, Values: values}, nil
}
