package diagnose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/formulint/pkg/sheet"
)

func TestCheckCircular_Direct(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		cell    string
		fix     string
	}{
		{"doubled self reference", "=A1+A1", "A1", "=0"},
		{"trailing self reference", "=B1*2+C3", "C3", "=B1*2"},
		{"leading self reference", "=C3*2+B1", "C3", "=2+B1"},
		{"absolute", "=$C$3+1", "C3", "=1"},
		{"argument", "=SUM(B2, C3, D4)", "C3", "=SUM(B2, D4)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckCircular(t.Context(), tt.formula, tt.cell, nil, DefaultMaxDepth)
			require.NotNil(t, d)
			assert.Equal(t, KindCircularReference, d.Kind)
			assert.Equal(t, SeverityError, d.Severity)
			require.Len(t, d.Suggestions, 1)
			assert.Equal(t, tt.fix, d.Suggestions[0].Formula)
		})
	}
}

func TestCheckCircular_OtherSheetIsNotSelf(t *testing.T) {
	assert.Nil(t, CheckCircular(t.Context(), "=Sheet2!A1+1", "A1", nil, DefaultMaxDepth))
}

func chain() *sheet.Memory {
	return sheet.NewMemoryFromMap(10, 10, map[string]string{
		"A1": "=B1",
		"B1": "=C1",
		"C1": "=A1",
	})
}

func TestCheckCircular_IndirectWithinDepth(t *testing.T) {
	mem := chain()
	d := CheckCircular(t.Context(), "=B1", "A1", mem, 2)
	require.NotNil(t, d)
	assert.Equal(t, KindCircularReference, d.Kind)
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, "Circular reference: A1 -> B1 -> C1 -> A1", d.Message)
	assert.Empty(t, d.Suggestions)
}

// With maxDepth=1 the walker stops at C1 before reading its formula, so a
// three-cell cycle goes unreported. This is the documented bound.
func TestCheckCircular_IndirectBeyondDepthIsMissed(t *testing.T) {
	mem := chain()
	assert.Nil(t, CheckCircular(t.Context(), "=B1", "A1", mem, 1))

	// a two-cell cycle still fits
	mem.SetCell(sheet.MustParseCellRef("B1"), "=A1")
	d := CheckCircular(t.Context(), "=B1", "A1", mem, 1)
	require.NotNil(t, d)
	assert.Equal(t, "Circular reference: A1 -> B1 -> A1", d.Message)
}

func TestCheckCircular_AnalyzerDepth(t *testing.T) {
	mem := chain()
	assert.NotNil(t, New().CheckCircular(t.Context(), "=B1", "A1", mem))
	assert.Nil(t, New(WithMaxDepth(1)).CheckCircular(t.Context(), "=B1", "A1", mem))
	assert.Nil(t, New(WithMaxDepth(0)).CheckCircular(t.Context(), "=B1", "A1", mem))
}

func TestCheckCircular_DiamondIsNotACycle(t *testing.T) {
	mem := sheet.NewMemoryFromMap(10, 10, map[string]string{
		"B1": "=D1",
		"C1": "=D1",
		"D1": "=5",
	})
	assert.Nil(t, CheckCircular(t.Context(), "=B1+C1", "A1", mem, 3))
}

func TestCheckCircular_RangeCoveringHost(t *testing.T) {
	mem := sheet.NewMemoryFromMap(10, 10, map[string]string{
		"B1": "=SUM(A1:A5)",
	})
	d := CheckCircular(t.Context(), "=B1", "A3", mem, 2)
	require.NotNil(t, d)
	assert.Equal(t, "Circular reference: A3 -> B1 -> A1:A5", d.Message)
}

func TestCheckCircular_FailsOpen(t *testing.T) {
	mem := sheet.NewMemoryFromMap(5, 5, map[string]string{
		"A1": "=B1",
	})
	// Z99 is outside the grid and Other!A1 is on another sheet; both are leaves.
	assert.Nil(t, CheckCircular(t.Context(), "=Z99+Other!A1+B1", "C1", mem, 2))
}

func TestCheckCircular_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Nil(t, CheckCircular(ctx, "=B1", "A1", chain(), 2))
}

func TestCheckCircular_RangeMemberOnPath(t *testing.T) {
	mem := sheet.NewMemoryFromMap(10, 10, map[string]string{
		"A1": "=SUM(B1:B3)",
		"B1": "1",
		"B2": "=A1",
	})
	d := CheckCircular(t.Context(), "=SUM(B1:B3)", "A1", mem, 2)
	require.NotNil(t, d)
	assert.Equal(t, "Circular reference: A1 -> B2 -> A1", d.Message)

	res, err := New().Analyze(t.Context(), mem, CellScope(sheet.MustParseCellRef("A1")))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 0, res.ValidCount)
}

func TestCheckCircular_RangeClippedToData(t *testing.T) {
	mem := sheet.NewMemoryFromMap(100, 10, map[string]string{
		"B2": "=A1",
	})
	// A1's range only overlaps the data area at B2.
	d := CheckCircular(t.Context(), "=SUM(B1:B90)", "A1", mem, 2)
	require.NotNil(t, d)
	assert.Equal(t, "Circular reference: A1 -> B2 -> A1", d.Message)

	assert.Nil(t, CheckCircular(t.Context(), "=SUM(E5:F9)", "A1", mem, 2))
}
