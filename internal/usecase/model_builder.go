package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/plateplan/backend/internal/domain"
	"github.com/plateplan/backend/internal/infrastructure/lp"
)

// Variable names used in the solve namespace. Each solve owns an
// independent model, so the names never collide across calls.
const (
	varWorstSoft    = "worst_soft"
	varWorstShort   = "worst_short"
	varWorstULProx  = "worst_ulprox"
	varWorstRatio   = "worst_ratio"
	varWorstMacro   = "worst_macro"
	varPeakMass     = "peak_mass"
	gramVarPrefix   = "g_"
	shortVarPrefix  = "short_"
	ulProxVarPrefix = "ulprox_"
)

// objectiveTerm is one candidate lexicographic objective: a linear
// expression to minimize and a true upper bound on its attainable value.
// The bound must never underestimate: the scalarization weights depend on
// it for strict lexicographic ordering.
type objectiveTerm struct {
	name     string
	terms    []lp.Term
	maxValue float64
}

// candidateTerms are the objective terms the builder actually produced.
// A nil entry means the term's inputs were empty.
type candidateTerms struct {
	worstShortfall *objectiveTerm
	shortfallSum   *objectiveTerm
	worstULProx    *objectiveTerm
	macroFit       *objectiveTerm
	diversity      *objectiveTerm
	totalWeight    *objectiveTerm
}

// modelBuilder assembles the linear program for one solve request.
type modelBuilder struct {
	req   *domain.SolveRequest
	coefs map[string]coefficients
	model *lp.Model
	eps   float64

	active      map[domain.Macro]bool
	hasSoft     bool
	hasRatio    bool
	maxRatioDev float64
}

func newModelBuilder(req *domain.SolveRequest, coefs map[string]coefficients, eps float64) *modelBuilder {
	return &modelBuilder{
		req:    req,
		coefs:  coefs,
		model:  lp.NewModel(),
		eps:    eps,
		active: make(map[domain.Macro]bool),
	}
}

// build assembles variables, constraints and candidate objective terms.
// Validation failures return domain.ErrInvalidRequest; the solver is never
// reached for those.
func (b *modelBuilder) build() (*lp.Model, *candidateTerms, error) {
	if err := b.addGramVariables(); err != nil {
		return nil, nil, err
	}
	b.addCalorieBand()
	if err := b.addMacroConstraints(); err != nil {
		return nil, nil, err
	}
	b.addMicroUpperLimits()

	terms := &candidateTerms{}
	b.addMicroShortfalls(terms)
	b.addULProximity(terms)
	b.addMacroRatio(terms)
	b.addMacroFit(terms)
	b.addDiversity(terms)
	b.addTotalWeight(terms)

	return b.model, terms, nil
}

// addGramVariables creates one bounded gram variable per ingredient,
// rejecting inverted bounds and duplicates before anything else is built.
func (b *modelBuilder) addGramVariables() error {
	if len(b.req.Ingredients) == 0 {
		return fmt.Errorf("%w: no ingredients", domain.ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(b.req.Ingredients))
	for _, ing := range b.req.Ingredients {
		if ing.FoodID == "" {
			return fmt.Errorf("%w: ingredient with empty foodId", domain.ErrInvalidRequest)
		}
		if seen[ing.FoodID] {
			return fmt.Errorf("%w: duplicate ingredient %q", domain.ErrInvalidRequest, ing.FoodID)
		}
		seen[ing.FoodID] = true
		if ing.MinGrams < 0 || ing.MaxGrams < ing.MinGrams {
			return fmt.Errorf("%w: ingredient %q has bounds [%v, %v]",
				domain.ErrInvalidRequest, ing.FoodID, ing.MinGrams, ing.MaxGrams)
		}
		if err := b.model.AddVariable(gramVar(ing.FoodID), ing.MinGrams, ing.MaxGrams); err != nil {
			return err
		}
	}
	return nil
}

// addCalorieBand bounds total meal calories to [target-tol, target+tol].
// A zero-width band is emitted as a single equality row: a GE/LE pair at the
// same right-hand side degenerates the simplex pivot selection.
func (b *modelBuilder) addCalorieBand() {
	tol := math.Max(b.req.CalorieTolerance, 0)
	expr := b.calorieExpr()
	if tol < b.eps {
		b.model.AddConstraint(lp.EQ, b.req.MealCalorieTarget, expr...)
		return
	}
	b.model.AddConstraint(lp.GE, b.req.MealCalorieTarget-tol, expr...)
	b.model.AddConstraint(lp.LE, b.req.MealCalorieTarget+tol, expr...)
}

// addMacroConstraints emits hard macro inequalities directly and converts
// soft ones into normalized deviation variables folded into worst_soft.
func (b *modelBuilder) addMacroConstraints() error {
	for _, mc := range b.req.MacroConstraints {
		if mc.Mode == domain.ModeNone || mc.Mode == "" {
			continue
		}
		switch mc.Nutrient {
		case domain.MacroCarbs, domain.MacroProtein, domain.MacroFat, domain.MacroFiber:
		default:
			return fmt.Errorf("%w: unknown macro %q", domain.ErrInvalidRequest, mc.Nutrient)
		}
		b.active[mc.Nutrient] = true

		expr := b.macroExpr(mc.Nutrient)
		if mc.Hard {
			switch mc.Mode {
			case domain.ModeAtLeast:
				b.model.AddConstraint(lp.GE, mc.Grams, expr...)
			case domain.ModeAtMost:
				b.model.AddConstraint(lp.LE, mc.Grams, expr...)
			case domain.ModeExactly:
				b.model.AddConstraint(lp.EQ, mc.Grams, expr...)
			default:
				return fmt.Errorf("%w: unknown constraint mode %q", domain.ErrInvalidRequest, mc.Mode)
			}
			continue
		}
		if err := b.addSoftMacro(mc, expr); err != nil {
			return err
		}
	}
	return nil
}

// addSoftMacro introduces a deviation variable for one soft constraint,
// normalized by the larger of the target and the nutrient's attainable
// maximum, and folds it into the worst-soft-deviation minimax variable.
func (b *modelBuilder) addSoftMacro(mc domain.MacroConstraint, expr []lp.Term) error {
	bound := math.Max(mc.Grams, b.attainableMax(mc.Nutrient))
	if bound < b.eps {
		return nil
	}
	b.ensureWorstSoft()

	name := "dev_" + string(mc.Nutrient)
	switch mc.Mode {
	case domain.ModeAtLeast:
		if err := b.model.AddVariable(name, 0, bound); err != nil {
			return err
		}
		// dev >= target - achieved
		b.model.AddConstraint(lp.GE, mc.Grams, append(cloneTerms(expr), lp.Term{Var: name, Coef: 1})...)
		b.foldIntoWorst(varWorstSoft, []lp.Term{{Var: name, Coef: 1}}, bound)
	case domain.ModeAtMost:
		if err := b.model.AddVariable(name, 0, bound); err != nil {
			return err
		}
		// dev >= achieved - target
		b.model.AddConstraint(lp.LE, mc.Grams, append(cloneTerms(expr), lp.Term{Var: name, Coef: -1})...)
		b.foldIntoWorst(varWorstSoft, []lp.Term{{Var: name, Coef: 1}}, bound)
	case domain.ModeExactly:
		// Absolute difference via non-negative positive/negative split.
		pos, neg := "devp_"+string(mc.Nutrient), "devn_"+string(mc.Nutrient)
		if err := b.model.AddVariable(pos, 0, bound); err != nil {
			return err
		}
		if err := b.model.AddVariable(neg, 0, bound); err != nil {
			return err
		}
		eq := append(cloneTerms(expr), lp.Term{Var: pos, Coef: -1}, lp.Term{Var: neg, Coef: 1})
		b.model.AddConstraint(lp.EQ, mc.Grams, eq...)
		b.foldIntoWorst(varWorstSoft, []lp.Term{{Var: pos, Coef: 1}, {Var: neg, Coef: 1}}, bound)
	default:
		return fmt.Errorf("%w: unknown constraint mode %q", domain.ErrInvalidRequest, mc.Mode)
	}
	return nil
}

// addMicroUpperLimits emits one hard ceiling inequality per micronutrient
// with a positive remaining limit, skipping micros no ingredient supplies.
func (b *modelBuilder) addMicroUpperLimits() {
	for _, key := range sortedKeys(b.req.MicroUpperLimits) {
		ceiling := b.req.MicroUpperLimits[key]
		if ceiling < b.eps {
			continue
		}
		expr := b.microExpr(key)
		if len(expr) == 0 {
			continue
		}
		b.model.AddConstraint(lp.LE, ceiling, expr...)
	}
}

// addMicroShortfalls creates a normalized shortfall variable per micro
// target, the worst-shortfall minimax variable, and the plain shortfall sum.
func (b *modelBuilder) addMicroShortfalls(out *candidateTerms) {
	var sum []lp.Term
	count := 0
	for _, key := range sortedKeys(b.req.MicroTargets) {
		target := b.req.MicroTargets[key]
		if target < b.eps {
			continue
		}
		short := shortVarPrefix + key
		// Shortfall never exceeds the target itself, so [0,1] after
		// normalization.
		if err := b.model.AddVariable(short, 0, 1); err != nil {
			continue
		}
		expr := make([]lp.Term, 0, len(b.req.Ingredients)+1)
		for _, t := range b.microExpr(key) {
			expr = append(expr, lp.Term{Var: t.Var, Coef: t.Coef / target})
		}
		expr = append(expr, lp.Term{Var: short, Coef: 1})
		b.model.AddConstraint(lp.GE, 1, expr...)
		sum = append(sum, lp.Term{Var: short, Coef: 1})
		count++
	}
	if count == 0 {
		return
	}
	if err := b.model.AddVariable(varWorstShort, 0, 1); err == nil {
		for _, t := range sum {
			b.foldIntoWorst(varWorstShort, []lp.Term{t}, 1)
		}
	}
	out.worstShortfall = &objectiveTerm{
		name:     "worst_micro_shortfall",
		terms:    []lp.Term{{Var: varWorstShort, Coef: 1}},
		maxValue: 1,
	}
	out.shortfallSum = &objectiveTerm{
		name:     "micro_shortfall_sum",
		terms:    sum,
		maxValue: float64(count),
	}
}

// addULProximity penalizes how close achieved amounts approach tolerable
// upper limits, for micros that have both a target and positive headroom.
func (b *modelBuilder) addULProximity(out *candidateTerms) {
	count := 0
	for _, key := range sortedKeys(b.req.MicroTargets) {
		target := b.req.MicroTargets[key]
		ul, ok := b.req.MicroUpperLimits[key]
		headroom := ul - target
		if !ok || target < b.eps || headroom < b.eps {
			continue
		}
		expr := b.microExpr(key)
		if len(expr) == 0 {
			continue
		}
		prox := ulProxVarPrefix + key
		// The hard UL ceiling keeps achieved <= UL, so proximity fits [0,1].
		if err := b.model.AddVariable(prox, 0, 1); err != nil {
			continue
		}
		scaled := make([]lp.Term, 0, len(expr)+1)
		for _, t := range expr {
			scaled = append(scaled, lp.Term{Var: t.Var, Coef: t.Coef / headroom})
		}
		scaled = append(scaled, lp.Term{Var: prox, Coef: -1})
		b.model.AddConstraint(lp.LE, target/headroom, scaled...)
		count++
	}
	if count == 0 {
		return
	}
	if err := b.model.AddVariable(varWorstULProx, 0, 1); err == nil {
		for _, key := range sortedKeys(b.req.MicroTargets) {
			if b.model.HasVariable(ulProxVarPrefix + key) {
				b.foldIntoWorst(varWorstULProx, []lp.Term{{Var: ulProxVarPrefix + key, Coef: 1}}, 1)
			}
		}
	}
	out.worstULProx = &objectiveTerm{
		name:     "worst_ul_proximity",
		terms:    []lp.Term{{Var: varWorstULProx, Coef: 1}},
		maxValue: 1,
	}
}

// addMacroRatio expresses percentage deviations from the target calorie
// split in calorie units, against a constant total (meal target + pinned
// calories) to preserve linearity.
func (b *modelBuilder) addMacroRatio(_ *candidateTerms) {
	r := b.req.MacroRatio
	if r == nil {
		return
	}
	pinnedCal := 4*r.PinnedCarbGrams + 4*r.PinnedProteinGrams + 9*r.PinnedFatGrams
	total := b.req.MealCalorieTarget + pinnedCal
	if total < b.eps {
		return
	}

	type ratioMacro struct {
		macro  domain.Macro
		pct    float64
		pinned float64
	}
	macros := []ratioMacro{
		{domain.MacroCarbs, r.CarbPct, r.PinnedCarbGrams},
		{domain.MacroProtein, r.ProteinPct, r.PinnedProteinGrams},
		{domain.MacroFat, r.FatPct, r.PinnedFatGrams},
	}

	created := false
	for _, rm := range macros {
		if b.active[rm.macro] {
			continue
		}
		f := rm.macro.CaloriesPerGram()
		bound := math.Max(total, f*(b.attainableMax(rm.macro)+rm.pinned))
		pos, neg := "ratiop_"+string(rm.macro), "ration_"+string(rm.macro)
		if err := b.model.AddVariable(pos, 0, bound); err != nil {
			continue
		}
		if err := b.model.AddVariable(neg, 0, bound); err != nil {
			continue
		}
		// f·grams(x) − pos + neg = pct/100·total − f·pinned
		expr := make([]lp.Term, 0, len(b.req.Ingredients)+2)
		for _, t := range b.macroExpr(rm.macro) {
			expr = append(expr, lp.Term{Var: t.Var, Coef: f * t.Coef})
		}
		expr = append(expr, lp.Term{Var: pos, Coef: -1}, lp.Term{Var: neg, Coef: 1})
		b.model.AddConstraint(lp.EQ, rm.pct/100*total-f*rm.pinned, expr...)

		if !created {
			created = true
			b.hasRatio = true
			b.maxRatioDev = 1
		}
		norm := bound / total
		if norm > b.maxRatioDev {
			b.maxRatioDev = norm
		}
		b.foldIntoWorst(varWorstRatio, []lp.Term{{Var: pos, Coef: 1}, {Var: neg, Coef: 1}}, total)
	}
	if created {
		// Bound set after all folds so maxRatioDev is final.
		_ = b.model.AddVariable(varWorstRatio, 0, b.maxRatioDev)
	}
}

// addMacroFit produces the single "macro fit" objective term: the combined
// minimax over soft-macro and macro-ratio deviations when both exist,
// otherwise whichever one does.
func (b *modelBuilder) addMacroFit(out *candidateTerms) {
	switch {
	case b.hasSoft && b.hasRatio:
		bound := math.Max(1, b.maxRatioDev)
		if err := b.model.AddVariable(varWorstMacro, 0, bound); err != nil {
			return
		}
		b.model.AddConstraint(lp.LE, 0,
			lp.Term{Var: varWorstSoft, Coef: 1}, lp.Term{Var: varWorstMacro, Coef: -1})
		b.model.AddConstraint(lp.LE, 0,
			lp.Term{Var: varWorstRatio, Coef: 1}, lp.Term{Var: varWorstMacro, Coef: -1})
		out.macroFit = &objectiveTerm{
			name:     "macro_deviation",
			terms:    []lp.Term{{Var: varWorstMacro, Coef: 1}},
			maxValue: bound,
		}
	case b.hasSoft:
		out.macroFit = &objectiveTerm{
			name:     "macro_deviation",
			terms:    []lp.Term{{Var: varWorstSoft, Coef: 1}},
			maxValue: 1,
		}
	case b.hasRatio:
		out.macroFit = &objectiveTerm{
			name:     "macro_deviation",
			terms:    []lp.Term{{Var: varWorstRatio, Coef: 1}},
			maxValue: b.maxRatioDev,
		}
	}
}

// addDiversity adds a variable dominating every ingredient's grams;
// minimizing it discourages concentrating mass in one ingredient.
func (b *modelBuilder) addDiversity(out *candidateTerms) {
	peak := 0.0
	for _, ing := range b.req.Ingredients {
		if ing.MaxGrams > peak {
			peak = ing.MaxGrams
		}
	}
	if err := b.model.AddVariable(varPeakMass, 0, peak); err != nil {
		return
	}
	for _, ing := range b.req.Ingredients {
		b.model.AddConstraint(lp.LE, 0,
			lp.Term{Var: gramVar(ing.FoodID), Coef: 1}, lp.Term{Var: varPeakMass, Coef: -1})
	}
	out.diversity = &objectiveTerm{
		name:     "peak_ingredient_mass",
		terms:    []lp.Term{{Var: varPeakMass, Coef: 1}},
		maxValue: peak,
	}
}

// addTotalWeight produces the total-mass objective term.
func (b *modelBuilder) addTotalWeight(out *candidateTerms) {
	terms := make([]lp.Term, 0, len(b.req.Ingredients))
	totalMax := 0.0
	for _, ing := range b.req.Ingredients {
		terms = append(terms, lp.Term{Var: gramVar(ing.FoodID), Coef: 1})
		totalMax += ing.MaxGrams
	}
	out.totalWeight = &objectiveTerm{
		name:     "total_mass",
		terms:    terms,
		maxValue: totalMax,
	}
}

// ensureWorstSoft lazily creates the worst-soft-deviation variable.
func (b *modelBuilder) ensureWorstSoft() {
	if b.hasSoft {
		return
	}
	if err := b.model.AddVariable(varWorstSoft, 0, 1); err == nil {
		b.hasSoft = true
	}
}

// foldIntoWorst adds worst >= Σ(terms)/norm as a minimax inequality.
func (b *modelBuilder) foldIntoWorst(worst string, terms []lp.Term, norm float64) {
	scaled := make([]lp.Term, 0, len(terms)+1)
	for _, t := range terms {
		scaled = append(scaled, lp.Term{Var: t.Var, Coef: t.Coef / norm})
	}
	scaled = append(scaled, lp.Term{Var: worst, Coef: -1})
	b.model.AddConstraint(lp.LE, 0, scaled...)
}

// calorieExpr is the total-calorie linear expression over gram variables.
func (b *modelBuilder) calorieExpr() []lp.Term {
	terms := make([]lp.Term, 0, len(b.req.Ingredients))
	for _, ing := range b.req.Ingredients {
		coef := b.coefs[ing.FoodID].calories
		if math.Abs(coef) < b.eps {
			continue
		}
		terms = append(terms, lp.Term{Var: gramVar(ing.FoodID), Coef: coef})
	}
	return terms
}

// macroExpr is the achieved-grams expression for one macronutrient.
func (b *modelBuilder) macroExpr(m domain.Macro) []lp.Term {
	terms := make([]lp.Term, 0, len(b.req.Ingredients))
	for _, ing := range b.req.Ingredients {
		coef := b.coefs[ing.FoodID].macro(m)
		if math.Abs(coef) < b.eps {
			continue
		}
		terms = append(terms, lp.Term{Var: gramVar(ing.FoodID), Coef: coef})
	}
	return terms
}

// microExpr is the achieved-amount expression for one micronutrient key.
// Empty when no ingredient supplies the nutrient.
func (b *modelBuilder) microExpr(key string) []lp.Term {
	terms := make([]lp.Term, 0, len(b.req.Ingredients))
	for _, ing := range b.req.Ingredients {
		coef := b.coefs[ing.FoodID].micros[key]
		if math.Abs(coef) < b.eps {
			continue
		}
		terms = append(terms, lp.Term{Var: gramVar(ing.FoodID), Coef: coef})
	}
	return terms
}

// attainableMax is the largest value a macro can take given gram upper
// bounds, used as the normalization denominator for soft deviations.
func (b *modelBuilder) attainableMax(m domain.Macro) float64 {
	total := 0.0
	for _, ing := range b.req.Ingredients {
		coef := b.coefs[ing.FoodID].macro(m)
		if coef > 0 {
			total += coef * ing.MaxGrams
		}
	}
	return total
}

func gramVar(foodID string) string { return gramVarPrefix + foodID }

func cloneTerms(terms []lp.Term) []lp.Term {
	out := make([]lp.Term, len(terms))
	copy(out, terms)
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
