package domain

// Macro identifies one of the tracked macronutrients.
type Macro string

const (
	MacroCarbs   Macro = "carbs"
	MacroProtein Macro = "protein"
	MacroFat     Macro = "fat"
	MacroFiber   Macro = "fiber"
)

// CaloriesPerGram returns the Atwater factor for the macro (kcal per gram).
// Fiber contributes no calories in this model.
func (m Macro) CaloriesPerGram() float64 {
	switch m {
	case MacroFat:
		return 9
	case MacroCarbs, MacroProtein:
		return 4
	default:
		return 0
	}
}

// ConstraintMode selects the direction of a macro constraint.
type ConstraintMode string

const (
	ModeAtLeast ConstraintMode = "gte"
	ModeAtMost  ConstraintMode = "lte"
	ModeExactly ConstraintMode = "eq"
	ModeNone    ConstraintMode = "none"
)

// IngredientBound is the allowed gram range for one candidate food.
type IngredientBound struct {
	FoodID   string  `json:"foodId" binding:"required"`
	MinGrams float64 `json:"minGrams" binding:"gte=0"`
	MaxGrams float64 `json:"maxGrams"`
}

// FoodNutrients holds the composition of a food per 100 g, with a sparse
// micronutrient map (absent key means zero).
type FoodNutrients struct {
	Calories float64            `json:"calories"`
	Protein  float64            `json:"protein"`
	Fat      float64            `json:"fat"`
	Carbs    float64            `json:"carbs"`
	Fiber    float64            `json:"fiber"`
	Micros   map[string]float64 `json:"micros,omitempty"`
}

// MacroConstraint is a hard or soft bound on one macronutrient, in grams.
type MacroConstraint struct {
	Nutrient Macro          `json:"nutrient"`
	Mode     ConstraintMode `json:"mode"`
	Grams    float64        `json:"grams"`
	Hard     bool           `json:"hard"`
}

// MacroRatioTarget is a target calorie split across carbs/protein/fat,
// with grams of each already consumed outside the optimized meal.
type MacroRatioTarget struct {
	CarbPct            float64 `json:"carbPct"`
	ProteinPct         float64 `json:"proteinPct"`
	FatPct             float64 `json:"fatPct"`
	PinnedCarbGrams    float64 `json:"pinnedCarbGrams"`
	PinnedProteinGrams float64 `json:"pinnedProteinGrams"`
	PinnedFatGrams     float64 `json:"pinnedFatGrams"`
}

// Priority names one lexicographic objective category.
type Priority string

const (
	PriorityMicroCoverage Priority = "micronutrient-coverage"
	PriorityMacroRatio    Priority = "macro-ratio"
	PriorityDiversity     Priority = "ingredient-diversity"
	PriorityTotalWeight   Priority = "total-weight"
)

// DefaultPriorities is the order used when the caller supplies none.
var DefaultPriorities = []Priority{
	PriorityMicroCoverage,
	PriorityMacroRatio,
	PriorityDiversity,
	PriorityTotalWeight,
}

// MicroStrategy selects how micronutrient coverage is ordered within its
// priority slot: depth optimizes the single worst-covered nutrient first,
// breadth optimizes the summed shortfall first.
type MicroStrategy string

const (
	StrategyDepth   MicroStrategy = "depth"
	StrategyBreadth MicroStrategy = "breadth"
)

// Demographic is the sex and age band used to resolve DRI references.
// It only affects response annotation, never the solve itself.
type Demographic struct {
	Sex     string `json:"sex"`
	AgeBand string `json:"ageBand"`
}

// SolveRequest is the full input of one meal solve.
type SolveRequest struct {
	Ingredients       []IngredientBound        `json:"ingredients" binding:"required"`
	Foods             map[string]FoodNutrients `json:"foods"`
	MealCalorieTarget float64                  `json:"mealCalorieTarget"`
	CalorieTolerance  float64                  `json:"calorieTolerance"`
	MacroConstraints  []MacroConstraint        `json:"macroConstraints,omitempty"`
	MicroTargets      map[string]float64       `json:"microTargets,omitempty"`
	MicroUpperLimits  map[string]float64       `json:"microUpperLimits,omitempty"`
	MacroRatio        *MacroRatioTarget        `json:"macroRatio,omitempty"`
	Priorities        []Priority               `json:"priorities,omitempty"`
	MicroStrategy     MicroStrategy            `json:"microStrategy,omitempty"`
	Demographic       Demographic              `json:"demographic"`
	OptimizedMicros   []string                 `json:"optimizedMicros,omitempty"`
	PinnedMicros      map[string]float64       `json:"pinnedMicros,omitempty"`
}

// SolvedIngredient is one ingredient's solved mass and derived macros.
type SolvedIngredient struct {
	FoodID   string  `json:"foodId"`
	Grams    float64 `json:"grams"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein_g"`
	Fat      float64 `json:"fat_g"`
	Carbs    float64 `json:"carbs_g"`
	Fiber    float64 `json:"fiber_g"`
}

// MealTotals aggregates the solved meal.
type MealTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein_g"`
	Fat      float64 `json:"fat_g"`
	Carbs    float64 `json:"carbs_g"`
	Fiber    float64 `json:"fiber_g"`
}

// MicroResult reports coverage of one tracked micronutrient.
// EAR and UL are informational passthroughs for display.
type MicroResult struct {
	Total     float64 `json:"total"`
	Pinned    float64 `json:"pinned"`
	DRI       float64 `json:"dri"`
	Remaining float64 `json:"remaining"`
	Percent   float64 `json:"pct"`
	Optimized bool    `json:"optimized"`
	EAR       float64 `json:"ear"`
	UL        float64 `json:"ul"`
}

// SolveStatus is the domain-level outcome of a solve.
type SolveStatus string

const (
	StatusSuccess    SolveStatus = "success"
	StatusInfeasible SolveStatus = "infeasible"
)

// SolveResponse is the full output of one meal solve. Infeasibility is a
// normal response value, not an error.
type SolveResponse struct {
	Status      SolveStatus            `json:"status"`
	Ingredients []SolvedIngredient     `json:"perIngredient"`
	Totals      MealTotals             `json:"mealTotals"`
	Micros      map[string]MicroResult `json:"microResults"`
}
