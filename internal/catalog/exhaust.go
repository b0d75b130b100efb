package catalog

// exhaustLoop is the bounded termination rule for progressive listing
// loading. The listing counts as fully loaded only once the tile count
// survives stableThreshold consecutive rounds with no growth and no
// load-more click, which tolerates one-off network jitter. The iteration
// cap guarantees the loop never runs unbounded.
type exhaustLoop struct {
	maxIterations   int
	stableThreshold int

	iterations int
	stable     int
	lastCount  int
}

func newExhaustLoop(maxIterations, stableThreshold int) *exhaustLoop {
	return &exhaustLoop{
		maxIterations:   maxIterations,
		stableThreshold: stableThreshold,
		lastCount:       -1,
	}
}

// Observe records one iteration's rendered tile count and whether a
// load-more click happened. It returns true once the listing is exhausted
// or the iteration cap is reached.
func (l *exhaustLoop) Observe(count int, clicked bool) bool {
	l.iterations++

	if count == l.lastCount && !clicked {
		l.stable++
	} else {
		l.stable = 0
	}
	l.lastCount = count

	if l.stable >= l.stableThreshold {
		return true
	}
	return l.iterations >= l.maxIterations
}
