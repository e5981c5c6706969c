// Package cli builds the command-line surface: the train and eval
// subcommands, their flags, and process-level concerns like exit codes. It
// translates CLI flags into the application's internal configuration.
package cli
