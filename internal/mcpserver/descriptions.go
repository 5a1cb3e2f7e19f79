package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and what the fields mean.

const issueFields = `METRICS RETURNED:
- total_formulas, valid_count: formula cells seen and cells with no issue
- error_count, warning_count, info_count: cells counted by their worst issue
- issues: cell, kind, severity, message and suggestions per finding
- summary: issue counts per kind`

const interpretIssues = `INTERPRETING RESULTS:
- error: the formula returns an error or will not recalculate (circular_reference, syntax_error, formula_error)
- warning: the formula works but breaks in other apps or slows the sheet (deprecated_function, performance, invalid_reference)
- info: worth knowing, not worth fixing blindly (volatile_function)
- suggestions are candidate rewrites; they are never written back automatically
- a formula that only reaches a cycle through other cells is still flagged, fix the cells in the cycle first`

func describeAnalyzeCell() string {
	return `Diagnoses the formula in one cell: errors, circular references, bad references, deprecated or non-portable functions, performance and volatility.

USE WHEN:
- A user asks why a specific cell shows #REF!, #NAME? or a circular warning
- Checking a formula before or after editing it
- Verifying a suggestion produced by another tool

` + interpretIssues + `

` + issueFields
}

func describeAnalyzeRange() string {
	return `Diagnoses every formula in a rectangular range such as A1:D20.

USE WHEN:
- A user points at a table or block of calculations
- Checking a column of copied formulas
- The sheet is large and only part of it matters

Ranges are clipped to the sheet; empty cells and plain values are skipped.

` + interpretIssues + `

` + issueFields
}

func describeAnalyzeSheet() string {
	return `Diagnoses every formula on one sheet. Set grouped=true to collapse the same issue raised on copies of one formula (for example a formula filled down 500 rows).

USE WHEN:
- Reviewing a sheet before sharing or migrating it
- Finding where a sheet's recalculation time goes
- Getting an overview before drilling into cells

` + interpretIssues + `

` + issueFields + `
- groups (grouped=true): count, cells and the shared message per repeated finding`
}

func describeAnalyzeWorkbook() string {
	return `Diagnoses every sheet of a workbook concurrently and merges the results. Issue cells are qualified with their sheet name ('My Sheet'!B2).

USE WHEN:
- Auditing a whole file
- Comparing health across sheets
- Preparing a fix list for a migration between Excel and Google Sheets

INTERPRETING RESULTS:
- sheets[].skipped: the sheet holds no data
- sheets[].error: the sheet could not be read; the other sheets are still reported
- total: the merged result across all sheets

` + issueFields
}

func describeScoreFormula() string {
	return `Scores the recalculation cost of a formula from 0 to 100 with a letter grade. No workbook is needed.

USE WHEN:
- Choosing between two ways to write a formula
- Explaining why a formula is slow
- Checking that a rewrite actually helps

INTERPRETING RESULTS:
- A: 90+, B: 75-89, C: 60-74, D: 40-59, F: below 40
- Deductions come from length, volatile calls, whole-column or whole-row ranges, array functions and deep nesting
- suggestions list the points each change would recover

METRICS RETURNED:
- score, grade, suggestions (factor, improvement, description)
- metrics: length, volatile_calls, whole_ranges, array_function, max_depth`
}

func describeGraph() string {
	return `Builds the cell dependency graph of a sheet and reports every cycle, unbounded by depth.

USE WHEN:
- analyze_sheet reports circular references and the full loop is needed
- Finding the inputs most of the sheet depends on
- Estimating the blast radius of changing a cell

INTERPRETING RESULTS:
- cycles: each entry is a set of cells that depend on each other; a single cell reads itself
- key_cells: the most depended-upon cells by PageRank, change these with care
- max_reach: the largest number of cells any one formula depends on

METRICS RETURNED:
- summary: total_nodes, total_edges, formula_cells, cycles, cells_in_cycles, max_reach
- cycles, key_cells`
}

func describeApplyFix() string {
	return `Writes a replacement formula into a cell and saves the workbook. This modifies the user's file.

USE WHEN:
- The user has accepted a suggestion from an analyze tool
- Always confirm the exact cell and formula with the user first

The formula is written as given; run analyze_cell afterwards to confirm the issue is gone.`
}
