// Package statistics accumulates per-round results from simulations and
// reports expectation with confidence intervals.
package statistics

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"

	"github.com/lox/blackjack/internal/game"
)

// RoundResult represents the outcome of a single blackjack round
type RoundResult struct {
	NetUnits float64 // Net result in units of the base bet
	Seed     int64   // RNG seed of the simulation (for replay)
	Round    int     // Round number within the simulation
	Natural  bool    // Settled on the deal (either side had blackjack)
	Split    bool
	Doubled  bool
	Results  []game.Result // One per player hand
}

// FromSettlement converts a RoundSettledEvent into a RoundResult measured in
// units of baseBet.
func FromSettlement(ev game.RoundSettledEvent, baseBet int, natural bool) RoundResult {
	r := RoundResult{
		NetUnits: float64(ev.Net()) / float64(baseBet),
		Natural:  natural,
		Split:    len(ev.Outcomes) > 1,
	}
	for _, o := range ev.Outcomes {
		r.Results = append(r.Results, o.Result)
		if o.Bet > baseBet {
			r.Doubled = true
		}
	}
	return r
}

// Statistics tracks simulation statistics
type Statistics struct {
	Rounds int
	SumU   float64
	SumU2  float64   // Sum of squares for variance calculation
	Values []float64 // Store all values for median/percentile calculation
	Hands  int       // Player hands, more than Rounds when splits happen
	Counts map[game.Result]int

	// Rounds decided on the deal vs played out
	Naturals     int
	NaturalUnits float64
	PlayedUnits  float64
	AllUnits     float64 // Total for sanity check

	Splits       int
	Doubles      int
	SplitUnits   float64
	DoubledUnits float64

	MaxWin  float64
	MaxLoss float64
}

// Mean returns the arithmetic mean of all results in units per round
func (s *Statistics) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.SumU / float64(s.Rounds)
}

// Variance returns the sample variance of all results
func (s *Statistics) Variance() float64 {
	if s.Rounds < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumU2 - float64(s.Rounds)*mean*mean) / float64(s.Rounds-1)
}

// StdDev returns the sample standard deviation of all results
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Rounds))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Add incorporates a new round result into the statistics
func (s *Statistics) Add(result RoundResult) {
	u := result.NetUnits
	s.Rounds++
	s.SumU += u
	s.SumU2 += u * u
	s.Values = append(s.Values, u)
	s.AllUnits += u

	if s.Counts == nil {
		s.Counts = make(map[game.Result]int)
	}
	for _, r := range result.Results {
		s.Hands++
		s.Counts[r]++
	}

	if result.Natural {
		s.Naturals++
		s.NaturalUnits += u
	} else {
		s.PlayedUnits += u
	}

	if result.Split {
		s.Splits++
		s.SplitUnits += u
	}
	if result.Doubled {
		s.Doubles++
		s.DoubledUnits += u
	}

	if u > s.MaxWin {
		s.MaxWin = u
	}
	if u < s.MaxLoss {
		s.MaxLoss = u
	}
}

// Rate returns the share of player hands that ended with the given result
func (s *Statistics) Rate(r game.Result) float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.Counts[r]) / float64(s.Hands)
}

// Median returns the median value of all results
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// IsLedgerBalanced checks that natural and played rounds add up to the total
func (s *Statistics) IsLedgerBalanced() bool {
	return math.Abs(s.AllUnits-s.NaturalUnits-s.PlayedUnits) <= 1e-6
}

// Validate checks the internal consistency of the collected data
func (s *Statistics) Validate() error {
	if !s.IsLedgerBalanced() {
		return fmt.Errorf("ledger mismatch: all=%.6f, natural=%.6f, played=%.6f",
			s.AllUnits, s.NaturalUnits, s.PlayedUnits)
	}

	if s.Rounds <= 0 {
		return fmt.Errorf("invalid rounds count: %d", s.Rounds)
	}

	if len(s.Values) != s.Rounds {
		return fmt.Errorf("values array length (%d) does not match rounds count (%d)",
			len(s.Values), s.Rounds)
	}

	if s.Hands < s.Rounds {
		return fmt.Errorf("hands (%d) fewer than rounds (%d)", s.Hands, s.Rounds)
	}

	counted := 0
	for _, n := range s.Counts {
		counted += n
	}
	if counted != s.Hands {
		return fmt.Errorf("result counts (%d) do not match hands (%d)", counted, s.Hands)
	}

	if s.Naturals > s.Rounds || s.Splits > s.Rounds || s.Doubles > s.Rounds {
		return fmt.Errorf("category counts exceed rounds: naturals=%d splits=%d doubles=%d",
			s.Naturals, s.Splits, s.Doubles)
	}

	return nil
}

// Clone returns a deep copy
func (s *Statistics) Clone() *Statistics {
	c := *s
	c.Values = slices.Clone(s.Values)
	c.Counts = maps.Clone(s.Counts)
	return &c
}
