package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/plateplan/backend/internal/domain"
	"github.com/plateplan/backend/internal/infrastructure/lp"
)

// LPSolver is the solver backend contract: a pure, synchronous, single-shot
// minimization call. Non-optimal outcomes arrive as statuses, not errors.
type LPSolver interface {
	Solve(ctx context.Context, model *lp.Model) (*lp.Solution, error)
}

// SolveServiceConfig holds tunables for the solve engine.
type SolveServiceConfig struct {
	// Epsilon below which magnitudes are treated as exactly zero, guarding
	// every normalization divisor.
	Epsilon float64
	// MaxIngredients caps request size; zero means no cap.
	MaxIngredients int
}

// SolveService is the meal solve engine: one call builds the model, invokes
// the solver once, and interprets the solution. It is a stateless function
// of its inputs; nothing is shared or retained across calls, so a single
// service handles concurrent solves. Callers issuing overlapping requests
// are responsible for superseding stale results; the engine never cancels
// an invocation once started.
type SolveService struct {
	solver         LPSolver
	dri            domain.DRIRepository
	eps            float64
	maxIngredients int
}

// NewSolveService creates the engine with its solver backend and DRI
// reference provider.
func NewSolveService(solver LPSolver, dri domain.DRIRepository, cfg SolveServiceConfig) *SolveService {
	eps := cfg.Epsilon
	if eps <= 0 {
		eps = 1e-9
	}
	return &SolveService{
		solver:         solver,
		dri:            dri,
		eps:            eps,
		maxIngredients: cfg.MaxIngredients,
	}
}

// Solve runs one meal solve. Domain infeasibility (configuration errors,
// unsatisfiable hard constraints, or any non-optimal solver status) is
// returned as a normal infeasible response. The error return is reserved
// for host failures (solver runtime unavailable, malformed internal model).
func (s *SolveService) Solve(ctx context.Context, req *domain.SolveRequest) (*domain.SolveResponse, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}
	profile := s.dri.Profile(req.Demographic)

	if s.maxIngredients > 0 && len(req.Ingredients) > s.maxIngredients {
		return nil, fmt.Errorf("%w: %d ingredients exceeds limit %d",
			domain.ErrInvalidRequest, len(req.Ingredients), s.maxIngredients)
	}

	coefs := coefficientTable(req)

	model, terms, err := newModelBuilder(req, coefs, s.eps).build()
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			// Configuration error: deterministic infeasible response,
			// solver never invoked.
			log.Printf("[solve] configuration error: %v", err)
			return infeasibleResponse(req, profile), nil
		}
		return nil, err
	}

	compileObjective(model, terms, req.Priorities, req.MicroStrategy)

	solution, err := s.solver.Solve(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("solver invocation failed: %w", err)
	}
	if solution.Status != lp.StatusOptimal {
		// Unbounded and error statuses collapse into infeasible at this
		// boundary; unboundedness should be structurally unreachable since
		// every variable is bounded.
		if solution.Status != lp.StatusInfeasible {
			log.Printf("[solve] non-optimal solver status %q treated as infeasible", solution.Status)
		}
		return infeasibleResponse(req, profile), nil
	}

	return interpretSolution(req, coefs, solution.Values, profile), nil
}
