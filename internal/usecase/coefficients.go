package usecase

import "github.com/plateplan/backend/internal/domain"

// coefficients holds per-gram nutrient amounts for one food. Food
// composition arrives per 100 g; the model works in grams, so everything is
// scaled down once here and never again.
type coefficients struct {
	calories float64
	protein  float64
	fat      float64
	carbs    float64
	fiber    float64
	micros   map[string]float64
}

// macro returns the per-gram coefficient for a tracked macronutrient.
func (c coefficients) macro(m domain.Macro) float64 {
	switch m {
	case domain.MacroProtein:
		return c.protein
	case domain.MacroFat:
		return c.fat
	case domain.MacroCarbs:
		return c.carbs
	case domain.MacroFiber:
		return c.fiber
	default:
		return 0
	}
}

// extractCoefficients reduces a per-100g composition record to per-gram
// linear coefficients.
func extractCoefficients(food domain.FoodNutrients) coefficients {
	c := coefficients{
		calories: food.Calories / 100,
		protein:  food.Protein / 100,
		fat:      food.Fat / 100,
		carbs:    food.Carbs / 100,
		fiber:    food.Fiber / 100,
		micros:   make(map[string]float64, len(food.Micros)),
	}
	for key, per100 := range food.Micros {
		c.micros[key] = per100 / 100
	}
	return c
}

// coefficientTable extracts coefficients for every requested ingredient.
// Foods missing from the composition table contribute zero to everything,
// matching the sparse-map convention for absent micronutrients.
func coefficientTable(req *domain.SolveRequest) map[string]coefficients {
	table := make(map[string]coefficients, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		food, ok := req.Foods[ing.FoodID]
		if !ok {
			table[ing.FoodID] = coefficients{micros: map[string]float64{}}
			continue
		}
		table[ing.FoodID] = extractCoefficients(food)
	}
	return table
}
