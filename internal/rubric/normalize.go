package rubric

import "math"

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// detectScale infers the judge's numeric scale from the maximum collected
// score and returns the factor that maps it onto 0–10. Models sometimes
// answer on 0–100 or 0–1 despite the prompt; the relative ranking is
// preserved either way.
//
// The 1.2 cutoff (rather than 1.0) tolerates a fractional-scale model
// drifting slightly above 1 without misreading the whole object as 0–10.
func detectScale(max float64) float64 {
	switch {
	case max > 10:
		return 0.1
	case max <= 1.2:
		return 10
	default:
		return 1
	}
}

// Normalize rewrites every score in a onto the canonical 0–10 scale, fixes
// the eye-contact percentage onto 0–100, and recomputes the category
// weighted values and overall score using the fixed rubric weights.
//
// It mutates a in place. Run it once, before [Enforce].
func Normalize(a *Analysis) {
	scores := a.scoreFields()

	var max float64
	for _, s := range scores {
		if *s > max {
			max = *s
		}
	}
	factor := detectScale(max)

	for _, s := range scores {
		*s = clamp(round1(*s*factor), 0, 10)
	}

	// Percentages use the same fraction heuristic on a 0–100 range.
	pct := a.BodyLanguageAnalysis.EyeContact.Percentage
	if pct <= 1.2 {
		pct *= 100
	}
	a.BodyLanguageAnalysis.EyeContact.Percentage = clamp(math.Round(pct), 0, 100)

	recomputeWeighted(a)
}

// recomputeWeighted overwrites the category weights with the fixed rubric
// weights, recomputes each weighted value from the (possibly changed)
// category score, and sets the overall score to the weighted sum.
func recomputeWeighted(a *Analysis) {
	cs := &a.CategoryScores
	for _, c := range []struct {
		cat    *CategoryScore
		weight float64
	}{
		{&cs.Content, WeightContent},
		{&cs.Delivery, WeightDelivery},
		{&cs.Language, WeightLanguage},
		{&cs.BodyLanguage, WeightBodyLanguage},
	} {
		c.cat.Weight = c.weight
		c.cat.Weighted = round1(c.cat.Score * c.weight)
	}
	sum := cs.Content.Weighted + cs.Delivery.Weighted + cs.Language.Weighted + cs.BodyLanguage.Weighted
	a.OverallScore = clamp(round1(sum), 0, 10)
}
