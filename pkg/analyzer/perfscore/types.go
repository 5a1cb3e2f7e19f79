package perfscore

// Factor names one cost a formula can incur.
type Factor string

const (
	FactorLength     Factor = "length"
	FactorVolatile   Factor = "volatile"
	FactorWholeRange Factor = "whole_range"
	FactorArray      Factor = "array_function"
	FactorNesting    Factor = "nesting"
)

// Grade is a letter grade for a score, A best.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeFromScore converts a 0-100 score to a letter grade.
func GradeFromScore(score int) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 75:
		return GradeB
	case score >= 60:
		return GradeC
	case score >= 40:
		return GradeD
	default:
		return GradeF
	}
}

// Suggestion is one way to recover points. Improvement equals the
// deduction the factor caused.
type Suggestion struct {
	Factor      Factor `json:"factor"`
	Description string `json:"description"`
	Improvement int    `json:"improvement"`
}

// Metrics are the raw measurements behind a score.
type Metrics struct {
	Length        int  `json:"length"`
	VolatileCalls int  `json:"volatile_calls"`
	WholeRanges   int  `json:"whole_ranges"`
	ArrayFunction bool `json:"array_function"`
	MaxDepth      int  `json:"max_depth"`
}

// Report is the performance assessment of one formula.
type Report struct {
	Formula     string       `json:"formula"`
	Score       int          `json:"score"`
	Grade       Grade        `json:"grade"`
	Metrics     Metrics      `json:"metrics"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Thresholds sets where the length and nesting deductions start.
type Thresholds struct {
	// Length is the longest formula, in bytes, that is not penalized.
	Length int `json:"length" toml:"score_length"`
	// NestingDepth is the deepest parenthesis nesting that is not penalized.
	NestingDepth int `json:"nesting_depth" toml:"score_nesting_depth"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Length:       200,
		NestingDepth: 5,
	}
}

// Penalties are the points each factor deducts. Volatile is charged per call.
type Penalties struct {
	Length     int `json:"length"`
	Volatile   int `json:"volatile"`
	WholeRange int `json:"whole_range"`
	Array      int `json:"array_function"`
	Nesting    int `json:"nesting"`
}

// DefaultPenalties returns the stock deductions.
func DefaultPenalties() Penalties {
	return Penalties{
		Length:     20,
		Volatile:   10,
		WholeRange: 15,
		Array:      10,
		Nesting:    15,
	}
}
