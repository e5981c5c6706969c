// Package registry provides the central "glue" for the component system.
//
// The Registry stores mappings between the type-selector strings used in
// configuration blocks (e.g. uses = "checkpoint") and the compiled Go
// factories that construct the corresponding components. It is populated at
// startup by the module list compiled into the binary, and looked up by the
// instantiators while building a run. An unknown selector is a fail-fast
// error; a duplicate registration is a programmer error and panics.
package registry
