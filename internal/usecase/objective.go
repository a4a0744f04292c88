package usecase

import (
	"github.com/plateplan/backend/internal/domain"
	"github.com/plateplan/backend/internal/infrastructure/lp"
)

// compiledTerm is one objective term with its scalarization weight, in
// final lexicographic order.
type compiledTerm struct {
	objectiveTerm
	weight float64
}

// compileObjective orders the produced candidate terms by the caller's
// priorities, computes strictly dominant weights bottom-up, and writes the
// resulting single weighted-sum objective onto the model. The ordered terms
// are returned for inspection.
//
// Weights: the last term gets weight 1 and weight[i] = weight[i+1] *
// maxValue[i+1] + 1, so one unit of improvement at priority i outweighs the
// entire attainable range of everything below it. This reproduces strict
// lexicographic order in a single solve, provided every maxValue is a true
// upper bound.
func compileObjective(
	model *lp.Model,
	candidates *candidateTerms,
	priorities []domain.Priority,
	strategy domain.MicroStrategy,
) []compiledTerm {
	ordered := make([]objectiveTerm, 0, 6)
	for _, p := range normalizePriorities(priorities) {
		for _, t := range expandPriority(candidates, p, strategy) {
			if t != nil {
				ordered = append(ordered, *t)
			}
		}
	}
	if len(ordered) == 0 {
		return nil
	}

	compiled := make([]compiledTerm, len(ordered))
	weight := 1.0
	for i := len(ordered) - 1; i >= 0; i-- {
		if i < len(ordered)-1 {
			weight = compiled[i+1].weight*ordered[i+1].maxValue + 1
		}
		compiled[i] = compiledTerm{objectiveTerm: ordered[i], weight: weight}
	}

	for _, ct := range compiled {
		for _, t := range ct.terms {
			model.AddObjectiveCoef(t.Var, ct.weight*t.Coef)
		}
	}
	return compiled
}

// expandPriority maps one priority category to its candidate terms.
// Micronutrient coverage expands to up to three: the worst shortfall and
// the shortfall sum in strategy order, then UL proximity.
func expandPriority(c *candidateTerms, p domain.Priority, strategy domain.MicroStrategy) []*objectiveTerm {
	switch p {
	case domain.PriorityMicroCoverage:
		if strategy == domain.StrategyBreadth {
			return []*objectiveTerm{c.shortfallSum, c.worstShortfall, c.worstULProx}
		}
		return []*objectiveTerm{c.worstShortfall, c.shortfallSum, c.worstULProx}
	case domain.PriorityMacroRatio:
		return []*objectiveTerm{c.macroFit}
	case domain.PriorityDiversity:
		return []*objectiveTerm{c.diversity}
	case domain.PriorityTotalWeight:
		return []*objectiveTerm{c.totalWeight}
	default:
		return nil
	}
}

// normalizePriorities dedupes the caller's ordering and appends any of the
// four categories it omitted, in default order, so every produced term is
// always optimized.
func normalizePriorities(priorities []domain.Priority) []domain.Priority {
	seen := make(map[domain.Priority]bool, 4)
	out := make([]domain.Priority, 0, 4)
	for _, p := range priorities {
		if seen[p] {
			continue
		}
		switch p {
		case domain.PriorityMicroCoverage, domain.PriorityMacroRatio,
			domain.PriorityDiversity, domain.PriorityTotalWeight:
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range domain.DefaultPriorities {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out
}
