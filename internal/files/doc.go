// Package files finds and checks measurement files on disk.
//
// Discovery lists the CSV and Excel files of a directory in the order they
// were produced, which is the order a batch import stores them. Validator
// checks single input files and export directories up front.
//
//	discovery := files.NewDiscovery(baseDir)
//	found, err := discovery.FindMeasurementFiles("incoming")
package files
