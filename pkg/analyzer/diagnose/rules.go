package diagnose

import (
	"strings"

	"github.com/panbanda/formulint/pkg/formula"
)

// compatRule flags a construct the target engine (Google Sheets) rejects or
// evaluates differently. rewrite produces the replacement suggestions.
type compatRule struct {
	name     string
	match    func(f string) bool
	severity Severity
	message  string
	rewrite  func(f string) []Suggestion
}

func callRule(name string, severity Severity, message string, rewrite func(formula.Call, string) []Suggestion) compatRule {
	call := formula.NewCall(name)
	return compatRule{
		name:     name,
		match:    call.In,
		severity: severity,
		message:  message,
		rewrite:  func(f string) []Suggestion { return rewrite(call, f) },
	}
}

// compatRules is scanned in order; the first match wins.
var compatRules = []compatRule{
	{
		name:     "_xlfn",
		match:    func(f string) bool { return strings.Contains(strings.ToUpper(f), "_XLFN.") },
		severity: SeverityError,
		message:  "Formula contains the _xlfn. prefix Excel writes for functions the reading application does not support",
		rewrite:  rewriteXlfn,
	},
	callRule("FILTERXML", SeverityError,
		"FILTERXML is Excel-only; Google Sheets uses IMPORTXML, which reads from a URL",
		rewriteRename("IMPORTXML", "Use IMPORTXML with the document URL as the first argument")),
	callRule("WEBSERVICE", SeverityError,
		"WEBSERVICE is Excel-only; Google Sheets uses IMPORTDATA",
		rewriteRename("IMPORTDATA", "Fetch the URL with IMPORTDATA")),
	callRule("AGGREGATE", SeverityError,
		"AGGREGATE is not available in Google Sheets",
		rewriteAggregate),
	callRule("PHONETIC", SeverityWarning,
		"PHONETIC only works on Japanese text in Excel and is not supported in Google Sheets",
		rewriteUnwrap),
	concatRule(),
}

// concatRule only fires when CONCAT is given more than two arguments.
func concatRule() compatRule {
	r := callRule("CONCAT", SeverityWarning,
		"CONCAT takes exactly two arguments in Google Sheets",
		rewriteRename("CONCATENATE", "CONCATENATE accepts any number of arguments"))
	call := formula.NewCall("CONCAT")
	r.match = func(f string) bool {
		args, _, _, ok := call.Args(f)
		return ok && len(args) > 2
	}
	return r
}

// errorToken is a literal error value embedded in formula text.
type errorToken struct {
	token   string
	message string
}

var errorTokens = []errorToken{
	{"#REF!", "Formula contains a broken reference (#REF!)"},
	{"#VALUE!", "Formula contains a wrong argument type (#VALUE!)"},
	{"#NAME?", "Formula contains an unrecognized name (#NAME?)"},
}

// placeholderRef replaces #REF! in suggestions.
const placeholderRef = "A1"

// nameTypos maps common misspellings to the intended function.
var nameTypos = []struct{ typo, fix string }{
	{"SUMM", "SUM"},
	{"SUMIFF", "SUMIF"},
	{"SUMIFSS", "SUMIFS"},
	{"VLOKUP", "VLOOKUP"},
	{"VLOOKP", "VLOOKUP"},
	{"VLOOKUPP", "VLOOKUP"},
	{"HLOKUP", "HLOOKUP"},
	{"XLOKUP", "XLOOKUP"},
	{"AVERAGEE", "AVERAGE"},
	{"AVERGE", "AVERAGE"},
	{"AVARAGE", "AVERAGE"},
	{"COUNTIFF", "COUNTIF"},
	{"CONUT", "COUNT"},
	{"COUTN", "COUNT"},
	{"IFERORR", "IFERROR"},
	{"IFERRROR", "IFERROR"},
	{"IFEROR", "IFERROR"},
	{"CONCATINATE", "CONCATENATE"},
	{"CONCATENTE", "CONCATENATE"},
	{"INDX", "INDEX"},
	{"MACTH", "MATCH"},
	{"MTACH", "MATCH"},
	{"ROUDN", "ROUND"},
	{"TODAYY", "TODAY"},
	{"LENN", "LEN"},
	{"TRIMM", "TRIM"},
}

// deprecatedRule maps a legacy function to its modern replacement. An
// empty replacement means the function was removed outright.
type deprecatedRule struct {
	call        formula.Call
	replacement string
	message     string
}

var deprecatedRules = []deprecatedRule{
	{formula.NewCall("STDEV"), "STDEV.S", "STDEV is a compatibility function; STDEV.S is the current sample standard deviation"},
	{formula.NewCall("VAR"), "VAR.S", "VAR is a compatibility function; VAR.S is the current sample variance"},
	{formula.NewCall("RANK"), "RANK.EQ", "RANK is a compatibility function; use RANK.EQ"},
	{formula.NewCall("PERCENTILE"), "PERCENTILE.INC", "PERCENTILE is a compatibility function; use PERCENTILE.INC"},
	{formula.NewCall("QUARTILE"), "QUARTILE.INC", "QUARTILE is a compatibility function; use QUARTILE.INC"},
	{formula.NewCall("MODE"), "MODE.SNGL", "MODE is a compatibility function; use MODE.SNGL"},
	{formula.NewCall("CEILING"), "CEILING.MATH", "CEILING is a compatibility function; use CEILING.MATH"},
	{formula.NewCall("FLOOR"), "FLOOR.MATH", "FLOOR is a compatibility function; use FLOOR.MATH"},
	{formula.NewCall("NORMDIST"), "NORM.DIST", "NORMDIST is a compatibility function; use NORM.DIST"},
	{formula.NewCall("COVAR"), "COVARIANCE.P", "COVAR is a compatibility function; use COVARIANCE.P"},
	{formula.NewCall("GOOGLECLOCK"), "", "GOOGLECLOCK was removed from Google Sheets; use NOW with recalculation settings"},
}

// Impact ranks how expensive a volatile function is to keep recalculating.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
)

type volatileRule struct {
	call   formula.Call
	impact Impact
}

var volatileRules = []volatileRule{
	{formula.NewCall("NOW"), ImpactMedium},
	{formula.NewCall("TODAY"), ImpactMedium},
	{formula.NewCall("RAND"), ImpactHigh},
	{formula.NewCall("RANDBETWEEN"), ImpactHigh},
	{formula.NewCall("RANDARRAY"), ImpactHigh},
	{formula.NewCall("OFFSET"), ImpactHigh},
	{formula.NewCall("INDIRECT"), ImpactHigh},
	{formula.NewCall("CELL"), ImpactMedium},
	{formula.NewCall("INFO"), ImpactMedium},
}

var (
	ifCall           = formula.NewCall("IF")
	arrayFormulaCall = formula.NewCall("ARRAYFORMULA")
)
