// Package config defines the format-agnostic configuration tree for a
// training run, composed by a format-specific loader from layered files and
// command-line overrides.
//
// The tree is a nested mapping from string keys to scalars, lists, or nested
// mappings. Leaf values stay lazy HCL expressions until resolved against the
// tree's evaluation context, so cross-references between config groups (for
// example "${paths.output_dir}/config.txt") work. A value whose resolution
// fails is not a load error; consumers decide whether to fail or to degrade
// to the unresolved source text.
//
// The tree is read-only after composition. Mapping iteration order is source
// order, which downstream component instantiation relies on.
package config
