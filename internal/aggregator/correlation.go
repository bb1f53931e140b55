package aggregator

const (
	// correlation scores start low on first co-occurrence, climb by a
	// fixed step, and never reach certainty
	correlationStart = 0.1
	correlationStep  = 0.05
	correlationCap   = 0.9
)

// updateCorrelationsLocked strengthens the pairwise score for every pair
// of subjects that changed within the same aggregation window. The
// matrix stays symmetric by construction.
func (a *Aggregator) updateCorrelationsLocked(subjects []string) {
	for i, first := range subjects {
		for _, second := range subjects[i+1:] {
			if first == second {
				continue
			}
			a.bumpPairLocked(first, second)
			a.bumpPairLocked(second, first)
		}
	}
}

func (a *Aggregator) bumpPairLocked(from, to string) {
	row := a.correlations[from]
	if row == nil {
		row = make(map[string]float64)
		a.correlations[from] = row
	}
	score, seen := row[to]
	if !seen {
		row[to] = correlationStart
		return
	}
	score += correlationStep
	if score > correlationCap {
		score = correlationCap
	}
	row[to] = score
}

// Correlations returns a copy of the full correlation matrix
func (a *Aggregator) Correlations() map[string]map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]map[string]float64, len(a.correlations))
	for id, row := range a.correlations {
		cp := make(map[string]float64, len(row))
		for other, score := range row {
			cp[other] = score
		}
		out[id] = cp
	}
	return out
}

// CorrelationScore returns the score between two subjects, zero when the
// pair has never co-occurred
func (a *Aggregator) CorrelationScore(first, second string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.correlations[first][second]
}
