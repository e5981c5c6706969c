// Package component defines the capability contracts the harness consumes:
// data modules, models, trainers, callbacks, and experiment loggers. The
// harness only ever drives these interfaces; the concrete implementations
// live under modules/ and register themselves with the registry.
package component
