// Package derive turns written payloads into report artifacts.
//
// A Processor reads the payload file named by a model.ReportRequest back
// from disk and applies the rule for its content kind:
//
//	text   word frequency, one "token: count" line per distinct token in first-seen order
//	csv    means of the audience score and profitability columns
//	excel  rows sorted by domestic gross, largest first, re-exported as .xlsx
//	json   one "title: genre, genre" line per movie record
//
// Missing columns and malformed records fail with model.ErrSchema and no
// output file is written.
package derive
