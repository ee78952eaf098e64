// Package repository stores experiments and their measurements in SQLite.
//
// The schema mirrors a laboratory notebook: researchers run experiments,
// experiments sample compounds over time, and each sample is one measurement
// row. Measurements load ordered by compound, time and replicate.
package repository
