// Package dataprocessing turns measurement tables into analysis datasets.
//
// Two tabular formats are accepted: CSV and Excel workbooks (.xlsx). Header
// names are matched loosely ("OD600", "optical density" and
// "optical_density" all name the same column), so exports of common plate
// reader software load without reshaping.
//
//	parser := dataprocessing.NewParser(logger)
//	rows, err := parser.ParseFile("plate-42.xlsx")
//	ds := dataprocessing.NewProcessor(logger).Dataset(rows)
//
// Malformed input fails with an errors.AppError of type PARSING that names the
// offending row and column.
package dataprocessing
