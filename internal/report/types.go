package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/panbanda/formulint/pkg/analyzer/diagnose"
)

// Metadata contains report generation metadata.
type Metadata struct {
	Workbook    string    `json:"workbook"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
	Target      string    `json:"target"`
}

// Recommendation represents a single recommendation item.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Recommendations groups recommendations by priority.
type Recommendations struct {
	HighPriority   []Recommendation `json:"high_priority"`
	MediumPriority []Recommendation `json:"medium_priority"`
	Ongoing        []Recommendation `json:"ongoing"`
}

// Empty reports whether there is nothing to recommend.
func (r Recommendations) Empty() bool {
	return len(r.HighPriority)+len(r.MediumPriority)+len(r.Ongoing) == 0
}

// SheetSection is one sheet of the report.
type SheetSection struct {
	Name    string                   `json:"name"`
	Result  *diagnose.AnalysisResult `json:"result,omitempty"`
	Groups  []diagnose.Group         `json:"groups,omitempty"`
	Skipped bool                     `json:"skipped,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// KindCount is one row of the per-kind breakdown.
type KindCount struct {
	Kind  diagnose.Kind `json:"kind"`
	Count int           `json:"count"`
}

// BuildRecommendations derives advice from the per-kind counts of a result.
func BuildRecommendations(r *diagnose.AnalysisResult) Recommendations {
	var rec Recommendations
	if r == nil {
		return rec
	}
	by := r.Summary.ByKind

	if n := by[diagnose.KindCircularReference]; n > 0 {
		rec.HighPriority = append(rec.HighPriority, Recommendation{
			Title:       "Break circular references",
			Description: fmt.Sprintf("%d formula(s) depend on their own result. Move the feedback into a separate input cell.", n),
		})
	}
	if n := by[diagnose.KindSyntaxError] + by[diagnose.KindFormulaError]; n > 0 {
		rec.HighPriority = append(rec.HighPriority, Recommendation{
			Title:       "Fix broken formulas",
			Description: fmt.Sprintf("%d formula(s) have syntax errors, error values or incompatible functions.", n),
		})
	}
	if n := by[diagnose.KindInvalidReference]; n > 0 {
		rec.MediumPriority = append(rec.MediumPriority, Recommendation{
			Title:       "Repair out-of-range references",
			Description: fmt.Sprintf("%d reference(s) point outside the sheet grid.", n),
		})
	}
	if n := by[diagnose.KindDeprecatedFunction]; n > 0 {
		rec.MediumPriority = append(rec.MediumPriority, Recommendation{
			Title:       "Replace deprecated functions",
			Description: fmt.Sprintf("%d formula(s) use functions kept only for compatibility.", n),
		})
	}
	if n := by[diagnose.KindPerformance]; n > 0 {
		rec.Ongoing = append(rec.Ongoing, Recommendation{
			Title:       "Reduce recalculation cost",
			Description: fmt.Sprintf("%d formula(s) scan whole columns, nest deeply or recalculate on every edit.", n),
		})
	}
	if n := by[diagnose.KindVolatileFunction]; n > 0 {
		rec.Ongoing = append(rec.Ongoing, Recommendation{
			Title:       "Review volatile functions",
			Description: fmt.Sprintf("%d formula(s) recalculate on every change to the workbook.", n),
		})
	}
	return rec
}

// KindCounts lists the non-zero kinds of a result, most frequent first.
func KindCounts(r *diagnose.AnalysisResult) []KindCount {
	if r == nil {
		return nil
	}
	var out []KindCount
	for _, k := range diagnose.Kinds {
		if n := r.Summary.ByKind[k]; n > 0 {
			out = append(out, KindCount{Kind: k, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// HealthScore is the share of formulas with no findings, 0-100. A scope
// without formulas scores 100.
func HealthScore(r *diagnose.AnalysisResult) int {
	if r == nil || r.TotalFormulas == 0 {
		return 100
	}
	return r.ValidCount * 100 / r.TotalFormulas
}
