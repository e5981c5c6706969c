// Package persist writes a run's human-readable side artifacts: the
// rendered configuration tree, the tag listing, and the hyperparameters
// submitted to the attached experiment loggers. Every operation is gated to
// the rank-zero process so multi-process runs write each artifact once.
package persist
