package healing

// Scorer computes the aggregated confidence for a strategy attempt. The
// computation is deterministic: identical inputs always yield identical
// output, which the coordinator's tie-break rule and the tests rely on.
type Scorer struct {
	baselines map[FailureType]float64
}

// Baseline confidence by failure type. Element lookups heal well (selector
// repair is usually decisive), network errors are the least trustworthy to
// retry blindly, unknown failures get the lowest prior.
var defaultBaselines = map[FailureType]float64{
	FailureAssertion:       0.5,
	FailureElementNotFound: 0.6,
	FailureTimeout:         0.5,
	FailureNetwork:         0.4,
	FailureUnknown:         0.3,
}

// NewScorer creates a scorer with the default baseline table.
func NewScorer() *Scorer {
	return &Scorer{baselines: defaultBaselines}
}

// Score blends the failure-type baseline with the strategy's self-declared
// confidence, adds a capped bonus for each successful action beyond the
// first, and clips the result to [0,1].
func (s *Scorer) Score(failureType FailureType, declared float64, actions []Action) float64 {
	baseline, ok := s.baselines[failureType]
	if !ok {
		baseline = s.baselines[FailureUnknown]
	}

	score := 0.5*baseline + 0.5*clamp01(declared)

	successful := 0
	for _, action := range actions {
		if action.Result == ActionSuccess {
			successful++
		}
	}
	if successful > 1 {
		bonus := 0.1 * float64(successful-1)
		if bonus > 0.2 {
			bonus = 0.2
		}
		score += bonus
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
