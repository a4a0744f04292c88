package main

import (
	"fmt"
	"log"
	"os"

	"github.com/plateplan/backend/config"
	httpDelivery "github.com/plateplan/backend/internal/delivery/http"
	"github.com/plateplan/backend/internal/infrastructure/dri"
	"github.com/plateplan/backend/internal/infrastructure/lp"
	"github.com/plateplan/backend/internal/infrastructure/session"
	"github.com/plateplan/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PlatePlan Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	solver := lp.NewSimplexSolver(cfg.Solver.SimplexTolerance)
	// The runtime initializes lazily on first solve; warming it here just
	// moves that cost ahead of the first real request.
	if err := solver.Warmup(); err != nil {
		log.Fatalf("Failed to warm up LP solver: %v", err)
	}
	log.Printf("LP solver ready (simplex tolerance: %v)", cfg.Solver.SimplexTolerance)

	driTable := dri.NewTable()
	sessions := session.NewStore(cfg.Session.TTL)

	// Initialize usecase layer
	solveService := usecase.NewSolveService(
		solver,
		driTable,
		usecase.SolveServiceConfig{
			Epsilon:        cfg.Solver.Epsilon,
			MaxIngredients: cfg.Solver.MaxIngredients,
		},
	)

	log.Printf("Solver: epsilon=%v, max_ingredients=%d",
		cfg.Solver.Epsilon, cfg.Solver.MaxIngredients)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(solveService, sessions)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
