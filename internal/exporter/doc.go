// Package exporter writes analysis data to CSV files and Excel workbooks.
//
// CSV output covers the raw measurement table and the growth/inhibition
// table. The workbook bundles the raw data, the growth analysis and the
// descriptive statistics on separate sheets:
//
//	csvWriter := exporter.NewCSVWriter(paths, logger)
//	path, err := csvWriter.ExportDataset(config.RawDataCSVName, ds)
//
//	wb := exporter.NewWorkbookExporter(logger)
//	err = wb.Write(w, exporter.WorkbookData{Dataset: ds, Results: results, Stats: stats})
//
// Missing values (NaN) are written as empty cells.
package exporter
