// Package dataset defines the tabular data an accountant guards.
//
// A Dataset is an ordered set of named columns of equal length. It is built
// once from either a column mapping or a flat sequence (treated as a single
// unnamed column) and is never mutated afterwards: filtering and casting
// produce new datasets.
//
// Any other input shape is rejected with an UnsupportedShapeError.
package dataset
