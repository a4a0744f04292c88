package usecase

import (
	"context"
	"math"
	"testing"

	"github.com/plateplan/backend/internal/domain"
	"github.com/plateplan/backend/internal/infrastructure/dri"
	"github.com/plateplan/backend/internal/infrastructure/lp"
)

func newTestService() *SolveService {
	return NewSolveService(lp.NewSimplexSolver(0), dri.NewTable(), SolveServiceConfig{})
}

// testFoods returns per-100g compositions used across the solve tests.
func testFoods() map[string]domain.FoodNutrients {
	return map[string]domain.FoodNutrients{
		"rice": {
			Calories: 365, Protein: 7.1, Fat: 0.7, Carbs: 80, Fiber: 1.3,
			Micros: map[string]float64{"iron_mg": 0.8, "thiamin_mg": 0.07},
		},
		"broccoli": {
			Calories: 34, Protein: 2.8, Fat: 0.4, Carbs: 7, Fiber: 2.6,
			Micros: map[string]float64{"iron_mg": 0.73, "vitamin_c_mg": 89.2},
		},
		"oil": {
			Calories: 884, Fat: 100,
		},
	}
}

func solvedGrams(t *testing.T, resp *domain.SolveResponse, foodID string) float64 {
	t.Helper()
	for _, ing := range resp.Ingredients {
		if ing.FoodID == foodID {
			return ing.Grams
		}
	}
	t.Fatalf("ingredient %q missing from response", foodID)
	return 0
}

func TestSolveScenarioA(t *testing.T) {
	svc := newTestService()
	req := &domain.SolveRequest{
		Ingredients: []domain.IngredientBound{
			{FoodID: "rice", MinGrams: 0, MaxGrams: 400},
			{FoodID: "broccoli", MinGrams: 200, MaxGrams: 400},
		},
		Foods:             testFoods(),
		MealCalorieTarget: 800,
		CalorieTolerance:  50,
		MacroConstraints: []domain.MacroConstraint{
			{Nutrient: domain.MacroProtein, Mode: domain.ModeAtLeast, Grams: 20, Hard: true},
		},
	}

	resp, err := svc.Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusSuccess {
		t.Fatalf("status = %v, want success", resp.Status)
	}
	if resp.Totals.Calories < 749.99 || resp.Totals.Calories > 850.01 {
		t.Errorf("calories = %v, want within [750, 850]", resp.Totals.Calories)
	}
	if resp.Totals.Protein < 19.99 {
		t.Errorf("protein = %v, want >= 20 (hard floor)", resp.Totals.Protein)
	}
	if g := solvedGrams(t, resp, "broccoli"); g < 199.99 {
		t.Errorf("broccoli grams = %v, want >= 200 (lower bound)", g)
	}
}

func TestSolveScenarioB(t *testing.T) {
	svc := newTestService()
	req := &domain.SolveRequest{
		Ingredients: []domain.IngredientBound{
			{FoodID: "oil", MinGrams: 0, MaxGrams: 10},
		},
		Foods:             testFoods(),
		MealCalorieTarget: 2000,
		CalorieTolerance:  10,
	}

	resp, err := svc.Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusInfeasible {
		t.Errorf("status = %v, want infeasible (10g of oil cannot reach 2000 kcal)", resp.Status)
	}
	if len(resp.Ingredients) != 0 {
		t.Errorf("infeasible response carries %d ingredients, want none", len(resp.Ingredients))
	}
	if resp.Totals != (domain.MealTotals{}) {
		t.Errorf("infeasible response totals = %+v, want zeroed", resp.Totals)
	}
}

func TestSolveWideningBoundsRestoresFeasibility(t *testing.T) {
	svc := newTestService()
	req := &domain.SolveRequest{
		Ingredients: []domain.IngredientBound{
			{FoodID: "oil", MinGrams: 0, MaxGrams: 300},
		},
		Foods:             testFoods(),
		MealCalorieTarget: 2000,
		CalorieTolerance:  10,
	}

	resp, err := svc.Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusSuccess {
		t.Fatalf("status = %v, want success after widening oil bound", resp.Status)
	}
	if resp.Totals.Calories < 1989.99 || resp.Totals.Calories > 2010.01 {
		t.Errorf("calories = %v, want within [1990, 2010]", resp.Totals.Calories)
	}
}

func TestSolveWideningKeepsFeasibleConfigurationFeasible(t *testing.T) {
	svc := newTestService()
	base := &domain.SolveRequest{
		Ingredients: []domain.IngredientBound{
			{FoodID: "rice", MinGrams: 0, MaxGrams: 400},
			{FoodID: "broccoli", MinGrams: 200, MaxGrams: 400},
		},
		Foods:             testFoods(),
		MealCalorieTarget: 800,
		CalorieTolerance:  50,
	}
	wide := &domain.SolveRequest{
		Ingredients: []domain.IngredientBound{
			{FoodID: "rice", MinGrams: 0, MaxGrams: 600},
			{FoodID: "broccoli", MinGrams: 0, MaxGrams: 500},
		},
		Foods:             testFoods(),
		MealCalorieTarget: 800,
		CalorieTolerance:  50,
	}

	for name, req := range map[string]*domain.SolveRequest{"base": base, "widened": wide} {
		resp, err := svc.Solve(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if resp.Status != domain.StatusSuccess {
			t.Errorf("%s: status = %v, want success", name, resp.Status)
		}
	}
}

func TestSolveFixedBounds(t *testing.T) {
	svc := newTestService()
	makeReq := func(target float64) *domain.SolveRequest {
		return &domain.SolveRequest{
			Ingredients: []domain.IngredientBound{
				{FoodID: "rice", MinGrams: 150, MaxGrams: 150},
				{FoodID: "broccoli", MinGrams: 300, MaxGrams: 300},
			},
			Foods:             testFoods(),
			MealCalorieTarget: target,
			CalorieTolerance:  10,
		}
	}

	t.Run("fixed point satisfying constraints is returned exactly", func(t *testing.T) {
		// 150g rice + 300g broccoli = 649.5 kcal, inside [640, 660].
		resp, err := svc.Solve(context.Background(), makeReq(650))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != domain.StatusSuccess {
			t.Fatalf("status = %v, want success", resp.Status)
		}
		if g := solvedGrams(t, resp, "rice"); math.Abs(g-150) > 1e-6 {
			t.Errorf("rice grams = %v, want exactly 150", g)
		}
		if g := solvedGrams(t, resp, "broccoli"); math.Abs(g-300) > 1e-6 {
			t.Errorf("broccoli grams = %v, want exactly 300", g)
		}
	})

	t.Run("fixed point violating the calorie band is infeasible", func(t *testing.T) {
		resp, err := svc.Solve(context.Background(), makeReq(2000))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != domain.StatusInfeasible {
			t.Errorf("status = %v, want infeasible", resp.Status)
		}
	})
}

func TestSolveDeterministic(t *testing.T) {
	svc := newTestService()
	makeReq := func() *domain.SolveRequest {
		return &domain.SolveRequest{
			Ingredients: []domain.IngredientBound{
				{FoodID: "rice", MinGrams: 0, MaxGrams: 400},
				{FoodID: "broccoli", MinGrams: 200, MaxGrams: 400},
			},
			Foods:             testFoods(),
			MealCalorieTarget: 800,
			CalorieTolerance:  50,
			MicroTargets:      map[string]float64{"iron_mg": 18, "vitamin_c_mg": 75},
		}
	}

	first, err := svc.Solve(context.Background(), makeReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Solve(context.Background(), makeReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Status != second.Status {
		t.Fatalf("statuses differ: %v vs %v", first.Status, second.Status)
	}
	for i := range first.Ingredients {
		a, b := first.Ingredients[i], second.Ingredients[i]
		if math.Abs(a.Grams-b.Grams) > 1e-9 {
			t.Errorf("%s grams differ across identical solves: %v vs %v", a.FoodID, a.Grams, b.Grams)
		}
	}
}

func TestSolveSoftConstraintAbsorbsShortfall(t *testing.T) {
	svc := newTestService()
	req := &domain.SolveRequest{
		Ingredients: []domain.IngredientBound{
			{FoodID: "rice", MinGrams: 0, MaxGrams: 100},
		},
		Foods:             testFoods(),
		MealCalorieTarget: 300,
		CalorieTolerance:  100,
		MacroConstraints: []domain.MacroConstraint{
			// Unreachable as hard (100g rice holds 7.1g protein), but soft:
			// the solver should push protein as high as it can.
			{Nutrient: domain.MacroProtein, Mode: domain.ModeAtLeast, Grams: 100, Hard: false},
		},
	}

	resp, err := svc.Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusSuccess {
		t.Fatalf("status = %v, want success (soft constraints never cause infeasibility)", resp.Status)
	}
	if g := solvedGrams(t, resp, "rice"); math.Abs(g-100) > 0.01 {
		t.Errorf("rice grams = %v, want 100 (maximum protein attainable)", g)
	}
}

func TestSolveMicroStrategies(t *testing.T) {
	// Two foods with identical calories but disjoint micros: a fixed total
	// mass must be split between zinc coverage and iron coverage. Depth
	// equalizes the two normalized shortfalls; breadth minimizes their sum,
	// which stops adding seeds once iron starts falling short.
	foods := map[string]domain.FoodNutrients{
		"seeds":  {Calories: 500, Micros: map[string]float64{"zinc_mg": 10}},
		"greens": {Calories: 500, Micros: map[string]float64{"iron_mg": 8}},
	}
	makeReq := func(strategy domain.MicroStrategy) *domain.SolveRequest {
		return &domain.SolveRequest{
			Ingredients: []domain.IngredientBound{
				{FoodID: "seeds", MinGrams: 0, MaxGrams: 100},
				{FoodID: "greens", MinGrams: 0, MaxGrams: 100},
			},
			Foods:             foods,
			MealCalorieTarget: 500,
			CalorieTolerance:  0,
			MicroTargets:      map[string]float64{"zinc_mg": 10, "iron_mg": 4},
			MicroStrategy:     strategy,
		}
	}
	svc := newTestService()

	depth, err := svc.Solve(context.Background(), makeReq(domain.StrategyDepth))
	if err != nil {
		t.Fatalf("depth: unexpected error: %v", err)
	}
	breadth, err := svc.Solve(context.Background(), makeReq(domain.StrategyBreadth))
	if err != nil {
		t.Fatalf("breadth: unexpected error: %v", err)
	}
	if depth.Status != domain.StatusSuccess || breadth.Status != domain.StatusSuccess {
		t.Fatalf("statuses = %v/%v, want success/success", depth.Status, breadth.Status)
	}

	depthSeeds := solvedGrams(t, depth, "seeds")
	breadthSeeds := solvedGrams(t, breadth, "seeds")
	if math.Abs(depthSeeds-66.67) > 1 {
		t.Errorf("depth seeds grams = %v, want ≈66.67 (equalized worst shortfall)", depthSeeds)
	}
	if math.Abs(breadthSeeds-50) > 1 {
		t.Errorf("breadth seeds grams = %v, want ≈50 (minimized summed shortfall)", breadthSeeds)
	}
	if depthSeeds <= breadthSeeds {
		t.Errorf("expected strategies to diverge: depth %v <= breadth %v", depthSeeds, breadthSeeds)
	}
}

func TestSolvePrioritySwap(t *testing.T) {
	foods := map[string]domain.FoodNutrients{
		"light": {Calories: 100},
		"dense": {Calories: 500},
	}
	makeReq := func(priorities []domain.Priority) *domain.SolveRequest {
		return &domain.SolveRequest{
			Ingredients: []domain.IngredientBound{
				{FoodID: "light", MinGrams: 0, MaxGrams: 1000},
				{FoodID: "dense", MinGrams: 0, MaxGrams: 100},
			},
			Foods:             foods,
			MealCalorieTarget: 500,
			CalorieTolerance:  0,
			Priorities:        priorities,
		}
	}
	svc := newTestService()

	weightFirst, err := svc.Solve(context.Background(),
		makeReq([]domain.Priority{domain.PriorityTotalWeight, domain.PriorityDiversity}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diversityFirst, err := svc.Solve(context.Background(),
		makeReq([]domain.Priority{domain.PriorityDiversity, domain.PriorityTotalWeight}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Minimizing total mass first loads everything onto the dense food.
	if g := solvedGrams(t, weightFirst, "dense"); math.Abs(g-100) > 0.5 {
		t.Errorf("weight-first dense grams = %v, want ≈100", g)
	}
	if g := solvedGrams(t, weightFirst, "light"); g > 0.5 {
		t.Errorf("weight-first light grams = %v, want ≈0", g)
	}
	// Minimizing the peak first spreads mass across both foods.
	if g := solvedGrams(t, diversityFirst, "dense"); math.Abs(g-83.33) > 1 {
		t.Errorf("diversity-first dense grams = %v, want ≈83.33", g)
	}
	if g := solvedGrams(t, diversityFirst, "light"); math.Abs(g-83.33) > 1 {
		t.Errorf("diversity-first light grams = %v, want ≈83.33", g)
	}
}

func TestSolveMacroRatio(t *testing.T) {
	// Two foods with disjoint macros: the calorie split can only be met by
	// choosing the right mass of each.
	foods := map[string]domain.FoodNutrients{
		"carbfood": {Calories: 400, Carbs: 100},
		"fatfood":  {Calories: 900, Fat: 100},
	}
	svc := newTestService()

	t.Run("steers masses toward the target calorie split", func(t *testing.T) {
		req := &domain.SolveRequest{
			Ingredients: []domain.IngredientBound{
				{FoodID: "carbfood", MinGrams: 0, MaxGrams: 500},
				{FoodID: "fatfood", MinGrams: 0, MaxGrams: 500},
			},
			Foods:             foods,
			MealCalorieTarget: 900,
			CalorieTolerance:  0,
			MacroRatio:        &domain.MacroRatioTarget{CarbPct: 50, FatPct: 50},
		}
		resp, err := svc.Solve(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != domain.StatusSuccess {
			t.Fatalf("status = %v, want success", resp.Status)
		}
		// 450 kcal from carbs needs 112.5g carbfood; 450 kcal from fat
		// needs 50g fatfood.
		if g := solvedGrams(t, resp, "carbfood"); math.Abs(g-112.5) > 0.5 {
			t.Errorf("carbfood grams = %v, want ≈112.5", g)
		}
		if g := solvedGrams(t, resp, "fatfood"); math.Abs(g-50) > 0.5 {
			t.Errorf("fatfood grams = %v, want ≈50", g)
		}
	})

	t.Run("zero tolerance stays feasible as bounds widen", func(t *testing.T) {
		// The exact calorie band plus ratio deviation splits produce a
		// degenerate model; widening an unused bound must never flip a
		// feasible request to infeasible.
		for _, fatMax := range []float64{200, 300, 500} {
			req := &domain.SolveRequest{
				Ingredients: []domain.IngredientBound{
					{FoodID: "carbfood", MinGrams: 0, MaxGrams: 500},
					{FoodID: "fatfood", MinGrams: 0, MaxGrams: fatMax},
				},
				Foods:             foods,
				MealCalorieTarget: 900,
				CalorieTolerance:  0,
				MacroRatio:        &domain.MacroRatioTarget{FatPct: 100},
			}
			resp, err := svc.Solve(context.Background(), req)
			if err != nil {
				t.Fatalf("fatMax=%v: unexpected error: %v", fatMax, err)
			}
			if resp.Status != domain.StatusSuccess {
				t.Fatalf("fatMax=%v: status = %v, want success", fatMax, resp.Status)
			}
			if g := solvedGrams(t, resp, "fatfood"); math.Abs(g-100) > 0.5 {
				t.Errorf("fatMax=%v: fatfood grams = %v, want ≈100", fatMax, g)
			}
			if g := solvedGrams(t, resp, "carbfood"); g > 0.5 {
				t.Errorf("fatMax=%v: carbfood grams = %v, want ≈0", fatMax, g)
			}
			if math.Abs(resp.Totals.Calories-900) > 0.01 {
				t.Errorf("fatMax=%v: calories = %v, want exactly 900", fatMax, resp.Totals.Calories)
			}
		}
	})
}

func TestSolveMicroUpperLimit(t *testing.T) {
	foods := map[string]domain.FoodNutrients{
		"fortified": {Calories: 100, Micros: map[string]float64{"iron_mg": 50}},
	}
	makeReq := func(ul float64) *domain.SolveRequest {
		return &domain.SolveRequest{
			Ingredients: []domain.IngredientBound{
				{FoodID: "fortified", MinGrams: 0, MaxGrams: 200},
			},
			Foods:             foods,
			MealCalorieTarget: 150,
			CalorieTolerance:  50,
			MicroTargets:      map[string]float64{"iron_mg": 18},
			MicroUpperLimits:  map[string]float64{"iron_mg": ul},
			OptimizedMicros:   []string{"iron_mg"},
		}
	}
	svc := newTestService()

	t.Run("stays away from the ceiling once the target is met", func(t *testing.T) {
		resp, err := svc.Solve(context.Background(), makeReq(60))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != domain.StatusSuccess {
			t.Fatalf("status = %v, want success", resp.Status)
		}
		// Calorie floor forces 100g; UL proximity keeps it from going higher.
		if g := solvedGrams(t, resp, "fortified"); math.Abs(g-100) > 0.5 {
			t.Errorf("grams = %v, want ≈100", g)
		}
		iron := resp.Micros["iron_mg"]
		if math.Abs(iron.Total-50) > 0.5 {
			t.Errorf("iron total = %v, want ≈50", iron.Total)
		}
		if !iron.Optimized {
			t.Error("iron_mg should be flagged as optimized")
		}
	})

	t.Run("ceiling below the calorie floor is infeasible", func(t *testing.T) {
		// UL 40 caps mass at 80g; the calorie band needs at least 100g.
		resp, err := svc.Solve(context.Background(), makeReq(40))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != domain.StatusInfeasible {
			t.Errorf("status = %v, want infeasible", resp.Status)
		}
	})
}

func TestSolveConfigurationErrors(t *testing.T) {
	svc := newTestService()

	t.Run("empty ingredient list", func(t *testing.T) {
		req := &domain.SolveRequest{
			Ingredients:       []domain.IngredientBound{},
			Foods:             testFoods(),
			MealCalorieTarget: 500,
			PinnedMicros:      map[string]float64{"iron_mg": 9},
		}
		resp, err := svc.Solve(context.Background(), req)
		if err != nil {
			t.Fatalf("configuration errors must not surface as errors, got: %v", err)
		}
		if resp.Status != domain.StatusInfeasible {
			t.Errorf("status = %v, want infeasible", resp.Status)
		}
		// Annotation still reflects pinned intake against the default
		// demographic (adult female, iron DRI 18).
		iron := resp.Micros["iron_mg"]
		if iron.Pinned != 9 {
			t.Errorf("iron pinned = %v, want 9", iron.Pinned)
		}
		if iron.Remaining != 9 {
			t.Errorf("iron remaining = %v, want 9", iron.Remaining)
		}
	})

	t.Run("inverted bounds", func(t *testing.T) {
		req := &domain.SolveRequest{
			Ingredients: []domain.IngredientBound{
				{FoodID: "rice", MinGrams: 300, MaxGrams: 100},
			},
			Foods:             testFoods(),
			MealCalorieTarget: 500,
		}
		resp, err := svc.Solve(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != domain.StatusInfeasible {
			t.Errorf("status = %v, want infeasible", resp.Status)
		}
	})

	t.Run("nil request", func(t *testing.T) {
		if _, err := svc.Solve(context.Background(), nil); err == nil {
			t.Error("expected error for nil request")
		}
	})
}

func TestSolveMicroResultAnnotation(t *testing.T) {
	svc := newTestService()
	req := &domain.SolveRequest{
		Ingredients: []domain.IngredientBound{
			{FoodID: "broccoli", MinGrams: 100, MaxGrams: 100},
		},
		Foods:             testFoods(),
		MealCalorieTarget: 34,
		CalorieTolerance:  5,
		Demographic:       domain.Demographic{Sex: "female", AgeBand: "19-30"},
		PinnedMicros:      map[string]float64{"vitamin_c_mg": 10},
		OptimizedMicros:   []string{"vitamin_c_mg"},
	}

	resp, err := svc.Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusSuccess {
		t.Fatalf("status = %v, want success", resp.Status)
	}

	vc, ok := resp.Micros["vitamin_c_mg"]
	if !ok {
		t.Fatal("vitamin_c_mg missing from micro results")
	}
	// 100g broccoli: 89.2mg, plus 10 pinned, against a 75mg DRI.
	if math.Abs(vc.Total-89.2) > 0.01 {
		t.Errorf("total = %v, want 89.2", vc.Total)
	}
	if vc.Pinned != 10 {
		t.Errorf("pinned = %v, want 10", vc.Pinned)
	}
	if vc.DRI != 75 {
		t.Errorf("dri = %v, want 75", vc.DRI)
	}
	if math.Abs(vc.Percent-132.3) > 0.1 {
		t.Errorf("pct = %v, want 132.3 (may exceed 100)", vc.Percent)
	}
	if !vc.Optimized {
		t.Error("vitamin_c_mg should be flagged as optimized")
	}
	if len(resp.Micros) != 20 {
		t.Errorf("tracked micronutrient set has %d entries, want 20", len(resp.Micros))
	}
}
