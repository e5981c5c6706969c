// Package hclcfg is the HCL implementation of configuration composition.
// It parses one or more .hcl files, merges their top-level groups in order,
// applies key.path=value command-line overrides, and produces the
// format-agnostic config.Tree consumed by the rest of the harness.
package hclcfg
