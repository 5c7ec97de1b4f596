// Package interpolation implements the numeric core of the IDW engine: point
// aggregation, inverse distance weighting, equal-interval classification and
// the pre-flight cost guard. Everything here is a pure function of its inputs;
// orchestration lives in the pipeline package.
package interpolation
