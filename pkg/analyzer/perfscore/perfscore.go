// Package perfscore rates the recalculation cost of a single formula on a
// 0-100 scale and lists what would raise the score.
package perfscore

import (
	"fmt"

	"github.com/panbanda/formulint/pkg/formula"
)

// Scorer computes performance reports.
// This scorer is safe for concurrent use.
type Scorer struct {
	thresholds Thresholds
	penalties  Penalties
}

// Option is a functional option for configuring Scorer.
type Option func(*Scorer)

// WithThresholds sets the length and nesting thresholds.
func WithThresholds(t Thresholds) Option {
	return func(s *Scorer) {
		s.thresholds = t
	}
}

// WithPenalties sets the per-factor deductions.
func WithPenalties(p Penalties) Option {
	return func(s *Scorer) {
		s.penalties = p
	}
}

// New creates a new scorer.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		thresholds: DefaultThresholds(),
		penalties:  DefaultPenalties(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.thresholds.Length <= 0 {
		s.thresholds.Length = DefaultThresholds().Length
	}
	if s.thresholds.NestingDepth <= 0 {
		s.thresholds.NestingDepth = DefaultThresholds().NestingDepth
	}
	// Penalties are never negative.
	p := &s.penalties
	p.Length, p.Volatile, p.WholeRange = max(p.Length, 0), max(p.Volatile, 0), max(p.WholeRange, 0)
	p.Array, p.Nesting = max(p.Array, 0), max(p.Nesting, 0)
	return s
}

// Score rates f. Every applicable deduction is taken and the result is
// clamped to [0, 100]. The text is scored as given; it need not start
// with "=".
func (s *Scorer) Score(f string) Report {
	m := Metrics{
		Length:        len(f),
		VolatileCalls: formula.CountVolatile(f),
		WholeRanges:   len(formula.WholeRanges(f)),
		ArrayFunction: formula.HasArrayFunction(f),
		MaxDepth:      formula.ScanParens(f).MaxDepth,
	}

	r := Report{
		Formula:     f,
		Metrics:     m,
		Suggestions: make([]Suggestion, 0),
	}
	score := 100
	deduct := func(factor Factor, points int, description string) {
		if points <= 0 {
			return
		}
		score -= points
		r.Suggestions = append(r.Suggestions, Suggestion{
			Factor:      factor,
			Description: description,
			Improvement: points,
		})
	}

	if m.Length > s.thresholds.Length {
		deduct(FactorLength, s.penalties.Length,
			fmt.Sprintf("Split the %d-character formula into helper cells", m.Length))
	}
	if m.VolatileCalls > 0 {
		deduct(FactorVolatile, s.penalties.Volatile*m.VolatileCalls,
			fmt.Sprintf("Replace %d volatile function call(s) with static values or references", m.VolatileCalls))
	}
	if m.WholeRanges > 0 {
		deduct(FactorWholeRange, s.penalties.WholeRange,
			"Limit whole-column and whole-row ranges to the rows that hold data")
	}
	if m.ArrayFunction {
		deduct(FactorArray, s.penalties.Array,
			"Restrict array functions to the smallest range that covers the data")
	}
	if m.MaxDepth > s.thresholds.NestingDepth {
		deduct(FactorNesting, s.penalties.Nesting,
			fmt.Sprintf("Reduce nesting depth from %d to %d or less", m.MaxDepth, s.thresholds.NestingDepth))
	}

	r.Score = clamp(score, 0, 100)
	r.Grade = GradeFromScore(r.Score)
	return r
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
