package diagnose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/formulint/pkg/formula"
	"github.com/panbanda/formulint/pkg/sheet"
)

func TestChecks_IgnoreNonFormulas(t *testing.T) {
	a := New()
	bounds := sheet.Bounds{MaxRows: 10, MaxCols: 10}
	for _, text := range []string{"", "hello", "A1+A1", "SUM(A1", ")(", " =A1"} {
		assert.Nil(t, CheckKnownErrors(text, "A1"), text)
		assert.Nil(t, CheckCircular(t.Context(), text, "A1", sheet.NewMemory(10, 10), 2), text)
		assert.Nil(t, CheckBounds(text, "A1", bounds), text)
		assert.Nil(t, CheckDeprecated(text, "A1"), text)
		assert.Nil(t, a.CheckPerformanceInline(text, "A1"), text)
		assert.Nil(t, CheckSyntax(text, "A1"), text)
		assert.Nil(t, CheckVolatile(text, "A1"), text)
	}
}

func TestCheckKnownErrors_Compatibility(t *testing.T) {
	tests := []struct {
		name     string
		formula  string
		function string
		severity Severity
		want     string
	}{
		{"xlfn prefix", "=_xlfn.STDEV.S(A1:A10)", "_xlfn", SeverityError, "=STDEV.S(A1:A10)"},
		{"filterxml", `=FILTERXML(A1, "//b")`, "FILTERXML", SeverityError, `=IMPORTXML(A1, "//b")`},
		{"webservice", `=WEBSERVICE("https://example.com")`, "WEBSERVICE", SeverityError, `=IMPORTDATA("https://example.com")`},
		{"aggregate ignoring hidden rows", "=AGGREGATE(9, 5, A1:A10)", "AGGREGATE", SeverityError, "=SUBTOTAL(109, A1:A10)"},
		{"aggregate with plain function", "=AGGREGATE(14, 6, A1:A10, 2)", "AGGREGATE", SeverityError, "=LARGE(A1:A10, 2)"},
		{"phonetic", "=PHONETIC(A1)", "PHONETIC", SeverityWarning, "=A1"},
		{"concat over two args", "=CONCAT(A1, B1, C1)", "CONCAT", SeverityWarning, "=CONCATENATE(A1, B1, C1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckKnownErrors(tt.formula, "B2")
			require.NotNil(t, d)
			assert.Equal(t, KindFormulaError, d.Kind)
			assert.Equal(t, tt.severity, d.Severity)
			assert.Equal(t, "B2", d.Cell)
			require.NotEmpty(t, d.Suggestions)
			assert.Equal(t, tt.want, d.Suggestions[0].Formula)
			// CONCATENATE contains the text CONCAT, so calls are matched as
			// tokens rather than substrings.
			for _, s := range d.Suggestions {
				if strings.HasPrefix(tt.function, "_") {
					assert.NotContains(t, strings.ToUpper(s.Formula), strings.ToUpper(tt.function))
					continue
				}
				assert.False(t, formula.NewCall(tt.function).In(s.Formula), s.Formula)
			}
		})
	}
}

func TestCheckKnownErrors_TwoArgConcatIsFine(t *testing.T) {
	assert.Nil(t, CheckKnownErrors("=CONCAT(A1, B1)", "C1"))
}

func TestCheckKnownErrors_ErrorTokens(t *testing.T) {
	t.Run("ref", func(t *testing.T) {
		d := CheckKnownErrors("=A1+#REF!", "B1")
		require.NotNil(t, d)
		assert.Equal(t, SeverityError, d.Severity)
		require.NotNil(t, d.Span)
		assert.Equal(t, 4, d.Span.Start)
		assert.Equal(t, 9, d.Span.End)
		require.Len(t, d.Suggestions, 1)
		assert.Equal(t, "=A1+A1", d.Suggestions[0].Formula)
	})

	t.Run("value", func(t *testing.T) {
		d := CheckKnownErrors("=#VALUE!*2", "B1")
		require.NotNil(t, d)
		require.Len(t, d.Suggestions, 1)
		assert.Equal(t, `=IFERROR(#VALUE!*2, "")`, d.Suggestions[0].Formula)
	})

	t.Run("name", func(t *testing.T) {
		d := CheckKnownErrors("=#NAME?", "B1")
		require.NotNil(t, d)
		assert.Contains(t, d.Message, "#NAME?")
	})
}

func TestCheckKnownErrors_UnknownFunction(t *testing.T) {
	tests := []struct {
		formula string
		name    string
		want    string
	}{
		{"=SUMM(A1:A3)", "SUMM", "=SUM(A1:A3)"},
		{"=VLOKUP(A1, B1:C10, 2)", "VLOKUP", "=VLOOKUP(A1, B1:C10, 2)"},
		{"=COUNTAA(A1:A3)", "COUNTAA", "=COUNTA(A1:A3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckKnownErrors(tt.formula, "D4")
			require.NotNil(t, d)
			assert.Contains(t, d.Message, tt.name)
			require.NotEmpty(t, d.Suggestions)
			assert.Equal(t, tt.want, d.Suggestions[0].Formula)
		})
	}

	assert.Nil(t, CheckKnownErrors("=MYCUSTOMFUNCTION(A1)", "D4"), "no close match means no diagnostic")
	assert.Nil(t, CheckKnownErrors("=SUM(A1:A3)", "D4"))
}

func TestCorrectName(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"IFERORR", "IFERROR", true},
		{"COUNTIFS", "COUNTIFS", true},
		{"SUMPRODCT", "SUMPRODUCT", true},
		{"ZZZZZZZZZZZZ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := correctName(tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCheckBounds(t *testing.T) {
	bounds := sheet.Bounds{MaxRows: 100, MaxCols: 5}
	tests := []struct {
		name    string
		formula string
		raw     string
	}{
		{"column past bounds", "=A1+F1", "F1"},
		{"row past bounds", "=B101", "B101"},
		{"range end past bounds", "=SUM(A1:A200)", "A1:A200"},
		{"first offender only", "=Z1+Y1", "Z1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CheckBounds(tt.formula, "A1", bounds)
			require.NotNil(t, d)
			assert.Equal(t, KindInvalidReference, d.Kind)
			assert.Equal(t, SeverityWarning, d.Severity)
			assert.Contains(t, d.Message, tt.raw)
			assert.Contains(t, d.Message, "100 rows")
			require.NotNil(t, d.Span)
			assert.Equal(t, tt.raw, tt.formula[d.Span.Start:d.Span.End])
		})
	}

	assert.Nil(t, CheckBounds("=SUM(A1:E100)", "A1", bounds))
	assert.Nil(t, CheckBounds("=Other!Z999", "A1", bounds), "other sheets are not checked")
}

func TestCheckDeprecated(t *testing.T) {
	d := CheckDeprecated("=STDEV(A1:A5)+STDEV(B1:B5)", "C1")
	require.NotNil(t, d)
	assert.Equal(t, KindDeprecatedFunction, d.Kind)
	assert.Equal(t, SeverityWarning, d.Severity)
	require.Len(t, d.Suggestions, 1)
	assert.Equal(t, "=STDEV.S(A1:A5)+STDEV.S(B1:B5)", d.Suggestions[0].Formula)

	d = CheckDeprecated("=GOOGLECLOCK()", "C1")
	require.NotNil(t, d)
	assert.Empty(t, d.Suggestions)

	assert.Nil(t, CheckDeprecated("=STDEV.S(A1:A5)", "C1"))
}

func TestCheckPerformanceInline(t *testing.T) {
	a := New()

	t.Run("arrayformula over whole column", func(t *testing.T) {
		d := a.CheckPerformanceInline("=ARRAYFORMULA(A:A*2)", "B1")
		require.NotNil(t, d)
		assert.Equal(t, KindPerformance, d.Kind)
		require.Len(t, d.Suggestions, 1)
		assert.Equal(t, "=ARRAYFORMULA(A1:A1000*2)", d.Suggestions[0].Formula)
	})

	t.Run("nested ifs", func(t *testing.T) {
		f := `=IF(A1>90,"A",IF(A1>80,"B",IF(A1>70,"C",IF(A1>60,"D","F"))))`
		d := a.CheckPerformanceInline(f, "B1")
		require.NotNil(t, d)
		assert.Contains(t, d.Message, "4 IF")
		require.Len(t, d.Suggestions, 1)
		assert.Equal(t, `=IFS(A1>90, "A", A1>80, "B", A1>70, "C", A1>60, "D", TRUE, "F")`, d.Suggestions[0].Formula)
	})

	t.Run("three ifs tolerated", func(t *testing.T) {
		assert.Nil(t, a.CheckPerformanceInline(`=IF(A1,1,IF(A2,2,IF(A3,3,4)))`, "B1"))
	})

	t.Run("volatile in long formula", func(t *testing.T) {
		f := "=IF(NOW()>0," + strings.Repeat("B2+", 40) + "0,0)"
		d := a.CheckPerformanceInline(f, "C1")
		require.NotNil(t, d)
		assert.Contains(t, d.Message, "NOW")
		assert.Empty(t, d.Suggestions)
	})

	t.Run("volatile in short formula", func(t *testing.T) {
		assert.Nil(t, a.CheckPerformanceInline("=NOW()", "C1"))
	})

	t.Run("custom thresholds", func(t *testing.T) {
		strict := New(WithThresholds(Thresholds{InlineVolatileLength: 5, NestedIfLimit: 1, BoundedRowSpan: 50}))
		assert.NotNil(t, strict.CheckPerformanceInline("=NOW()+1", "C1"))
		d := strict.CheckPerformanceInline("=ARRAYFORMULA(B:B)", "C1")
		require.NotNil(t, d)
		assert.Equal(t, "=ARRAYFORMULA(B1:B50)", d.Suggestions[0].Formula)
	})
}

func TestCheckSyntax(t *testing.T) {
	t.Run("missing closing parenthesis", func(t *testing.T) {
		d := CheckSyntax("=SUM(A1:A10", "B1")
		require.NotNil(t, d)
		assert.Equal(t, KindSyntaxError, d.Kind)
		assert.Equal(t, SeverityError, d.Severity)
		assert.Equal(t, "Missing 1 closing parenthesis", d.Message)
		require.Len(t, d.Suggestions, 1)
		assert.Equal(t, "=SUM(A1:A10)", d.Suggestions[0].Formula)
	})

	t.Run("several missing", func(t *testing.T) {
		d := CheckSyntax("=ROUND(SUM(A1:A10", "B1")
		require.NotNil(t, d)
		assert.Equal(t, "Missing 2 closing parentheses", d.Message)
		assert.Equal(t, "=ROUND(SUM(A1:A10))", d.Suggestions[0].Formula)
	})

	t.Run("unmatched closing before marker", func(t *testing.T) {
		d := CheckSyntax(")=A1", "B1")
		require.NotNil(t, d)
		assert.Equal(t, SeverityError, d.Severity)
		require.Len(t, d.Suggestions, 1)
		assert.Equal(t, "()=A1", d.Suggestions[0].Formula)
	})

	t.Run("unmatched closing after marker", func(t *testing.T) {
		d := CheckSyntax("=A1)+B1", "C1")
		require.NotNil(t, d)
		require.NotNil(t, d.Span)
		assert.Equal(t, 3, d.Span.Start)
		assert.Equal(t, "=(A1)+B1", d.Suggestions[0].Formula)
	})

	t.Run("missing separator", func(t *testing.T) {
		d := CheckSyntax("=SUM(A1) B1", "C1")
		require.NotNil(t, d)
		assert.Equal(t, SeverityWarning, d.Severity)
		assert.Empty(t, d.Suggestions)
	})

	t.Run("parentheses in quotes are counted", func(t *testing.T) {
		d := CheckSyntax(`=CONCATENATE("(", A1)`, "C1")
		require.NotNil(t, d)
		assert.Equal(t, "Missing 1 closing parenthesis", d.Message)
	})

	t.Run("balanced", func(t *testing.T) {
		assert.Nil(t, CheckSyntax("=SUM(A1:A10)*2", "C1"))
	})
}

func TestCheckSyntax_FixesReduceImbalance(t *testing.T) {
	imbalance := func(f string) int {
		d := strings.Count(f, "(") - strings.Count(f, ")")
		return max(d, -d)
	}
	for _, f := range []string{")=A1", "=A1))", "=SUM((A1", "=(((("} {
		d := CheckSyntax(f, "Z1")
		require.NotNil(t, d, f)
		require.NotEmpty(t, d.Suggestions, f)
		assert.Less(t, imbalance(d.Suggestions[0].Formula), imbalance(f), f)
	}
}

func TestCheckVolatile(t *testing.T) {
	d := CheckVolatile("=RAND()*10", "A1")
	require.NotNil(t, d)
	assert.Equal(t, KindVolatileFunction, d.Kind)
	assert.Equal(t, SeverityInfo, d.Severity)
	assert.Contains(t, d.Message, "high")
	assert.Empty(t, d.Suggestions)

	d = CheckVolatile("=TODAY()-A1", "A1")
	require.NotNil(t, d)
	assert.Contains(t, d.Message, "medium")

	assert.Nil(t, CheckVolatile("=SUM(A1:A3)", "A1"))
	assert.Nil(t, CheckVolatile("=NOWHERE(A1)", "A1"))
}
