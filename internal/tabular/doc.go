// Package tabular provides a header-plus-rows table shared by the CSV and
// Excel report rules.
//
// Cells are kept as strings exactly as read. Typed access goes through
// Float64Column, which reports missing columns and non-numeric cells as
// errors at the point of use rather than producing silent zeros.
package tabular
