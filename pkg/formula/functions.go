package formula

import (
	"slices"
	"strings"
)

// VolatileFunctions recalculate on every edit regardless of their inputs.
var VolatileFunctions = []string{
	"NOW", "TODAY", "RAND", "RANDBETWEEN", "RANDARRAY", "OFFSET", "INDIRECT", "CELL", "INFO",
}

// ArrayFunctions broadcast over whole ranges.
var ArrayFunctions = []string{"ARRAYFORMULA", "SUMPRODUCT", "MMULT"}

// CountVolatile returns the number of volatile calls in formula.
func CountVolatile(formula string) int {
	n := 0
	for _, name := range VolatileFunctions {
		n += NewCall(name).Count(formula)
	}
	return n
}

// HasArrayFunction reports whether formula calls any array-broadcasting
// function.
func HasArrayFunction(formula string) bool {
	for _, name := range ArrayFunctions {
		if NewCall(name).In(formula) {
			return true
		}
	}
	return false
}

// KnownFunctions is the catalogue used to recognise and correct function
// names. It covers the common Google Sheets and Excel functions.
var KnownFunctions = []string{
	"ABS", "ACOS", "ADDRESS", "AND", "ARRAYFORMULA", "ASIN", "ATAN", "ATAN2", "AVERAGE",
	"AVERAGEA", "AVERAGEIF", "AVERAGEIFS", "BYCOL", "BYROW", "CEILING", "CEILING.MATH",
	"CELL", "CHAR", "CHOOSE", "CLEAN", "CODE", "COLUMN", "COLUMNS", "CONCAT", "CONCATENATE",
	"CORREL", "COS", "COUNT", "COUNTA", "COUNTBLANK", "COUNTIF", "COUNTIFS", "COUNTUNIQUE",
	"COVAR", "COVARIANCE.P", "COVARIANCE.S", "DATE", "DATEDIF", "DATEVALUE", "DAY", "DAYS",
	"DETECTLANGUAGE", "EDATE", "EOMONTH", "EXACT", "EXP", "FILTER", "FIND", "FLATTEN",
	"FLOOR", "FLOOR.MATH", "FORECAST", "GOOGLEFINANCE", "GOOGLETRANSLATE", "HLOOKUP",
	"HOUR", "HYPERLINK", "IF", "IFERROR", "IFNA", "IFS", "IMAGE", "IMPORTDATA", "IMPORTFEED",
	"IMPORTHTML", "IMPORTRANGE", "IMPORTXML", "INDEX", "INDIRECT", "INFO", "INT", "ISBLANK",
	"ISERROR", "ISNA", "ISNUMBER", "ISTEXT", "JOIN", "LAMBDA", "LARGE", "LEFT", "LEN", "LET",
	"LN", "LOG", "LOG10", "LOOKUP", "LOWER", "MAP", "MATCH", "MAX", "MAXIFS", "MEDIAN", "MID",
	"MIN", "MINIFS", "MINUTE", "MMULT", "MOD", "MODE", "MODE.SNGL", "MONTH", "NETWORKDAYS",
	"NORM.DIST", "NORMDIST", "NOT", "NOW", "OFFSET", "OR", "PERCENTILE", "PERCENTILE.INC",
	"PI", "POWER", "PRODUCT", "PROPER", "QUARTILE", "QUARTILE.INC", "QUERY", "RAND",
	"RANDARRAY", "RANDBETWEEN", "RANK", "RANK.EQ", "REDUCE", "REGEXEXTRACT", "REGEXMATCH",
	"REGEXREPLACE", "REPLACE", "REPT", "RIGHT", "ROUND", "ROUNDDOWN", "ROUNDUP", "ROW", "ROWS",
	"SCAN", "SEARCH", "SECOND", "SEQUENCE", "SIGN", "SIN", "SMALL", "SORT", "SORTN", "SPARKLINE",
	"SPLIT", "SQRT", "STDEV", "STDEV.P", "STDEV.S", "SUBSTITUTE", "SUBTOTAL", "SUM", "SUMIF",
	"SUMIFS", "SUMPRODUCT", "SWITCH", "TAN", "TEXT", "TEXTJOIN", "TIME", "TIMEVALUE", "TODAY",
	"TRANSPOSE", "TRIM", "TRUNC", "UNIQUE", "UPPER", "VALUE", "VAR", "VAR.P", "VAR.S",
	"VLOOKUP", "WEEKDAY", "WEEKNUM", "WORKDAY", "XLOOKUP", "XMATCH", "YEAR",
}

// IsKnownFunction reports whether name is in KnownFunctions.
func IsKnownFunction(name string) bool {
	_, found := slices.BinarySearch(sortedKnown, strings.ToUpper(name))
	return found
}

var sortedKnown = func() []string {
	s := slices.Clone(KnownFunctions)
	slices.Sort(s)
	return s
}()
