package usecase

import (
	"math"

	"github.com/plateplan/backend/internal/domain"
)

// interpretSolution maps solved gram values back into per-ingredient macro
// breakdowns, meal aggregates, and micronutrient coverage. All arithmetic
// runs on unrounded values; rounding happens once at the edge and never
// feeds back into computation.
func interpretSolution(
	req *domain.SolveRequest,
	coefs map[string]coefficients,
	values map[string]float64,
	profile domain.DRIProfile,
) *domain.SolveResponse {
	ingredients := make([]domain.SolvedIngredient, 0, len(req.Ingredients))
	var totals domain.MealTotals
	microTotals := make(map[string]float64, len(profile))

	for _, ing := range req.Ingredients {
		grams := values[gramVar(ing.FoodID)]
		if grams < 0 {
			// Simplex noise below zero is meaningless mass.
			grams = 0
		}
		c := coefs[ing.FoodID]

		totals.Calories += grams * c.calories
		totals.Protein += grams * c.protein
		totals.Fat += grams * c.fat
		totals.Carbs += grams * c.carbs
		totals.Fiber += grams * c.fiber
		for key := range profile {
			microTotals[key] += grams * c.micros[key]
		}

		ingredients = append(ingredients, domain.SolvedIngredient{
			FoodID:   ing.FoodID,
			Grams:    round2(grams),
			Calories: round2(grams * c.calories),
			Protein:  round2(grams * c.protein),
			Fat:      round2(grams * c.fat),
			Carbs:    round2(grams * c.carbs),
			Fiber:    round2(grams * c.fiber),
		})
	}

	return &domain.SolveResponse{
		Status:      domain.StatusSuccess,
		Ingredients: ingredients,
		Totals: domain.MealTotals{
			Calories: round2(totals.Calories),
			Protein:  round2(totals.Protein),
			Fat:      round2(totals.Fat),
			Carbs:    round2(totals.Carbs),
			Fiber:    round2(totals.Fiber),
		},
		Micros: buildMicroResults(req, profile, microTotals),
	}
}

// infeasibleResponse is the deterministic response for configuration errors
// and solver-reported infeasibility: zeroed masses and totals, with
// micronutrient annotation still derived from pinned amounts.
func infeasibleResponse(req *domain.SolveRequest, profile domain.DRIProfile) *domain.SolveResponse {
	return &domain.SolveResponse{
		Status:      domain.StatusInfeasible,
		Ingredients: []domain.SolvedIngredient{},
		Totals:      domain.MealTotals{},
		Micros:      buildMicroResults(req, profile, nil),
	}
}

// buildMicroResults computes coverage for the fixed reference set of
// tracked micronutrients (the DRI profile's key set).
func buildMicroResults(
	req *domain.SolveRequest,
	profile domain.DRIProfile,
	microTotals map[string]float64,
) map[string]domain.MicroResult {
	optimized := make(map[string]bool, len(req.OptimizedMicros))
	for _, key := range req.OptimizedMicros {
		optimized[key] = true
	}

	results := make(map[string]domain.MicroResult, len(profile))
	for key, ref := range profile {
		total := microTotals[key]
		pinned := req.PinnedMicros[key]

		pct := 0.0
		if ref.DRI > 0 {
			pct = (total + pinned) / ref.DRI * 100
		}

		results[key] = domain.MicroResult{
			Total:     round2(total),
			Pinned:    round2(pinned),
			DRI:       ref.DRI,
			Remaining: round2(math.Max(0, ref.DRI-pinned)),
			Percent:   round1(pct),
			Optimized: optimized[key],
			EAR:       ref.EAR,
			UL:        ref.UL,
		}
	}
	return results
}

// round2 rounds to 2 decimals for amounts; presentation only.
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// round1 rounds to 1 decimal for percentages; presentation only.
func round1(v float64) float64 { return math.Round(v*10) / 10 }
