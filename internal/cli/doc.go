// Package cli implements the labanalyzer command line: the server, an
// offline analysis pipeline, and experiment database maintenance.
package cli
