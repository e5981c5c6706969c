package component

import "github.com/vk/trainriggo/internal/config"

// ObjectDict collects the instantiated components of one task invocation.
// It is write-once by the entry point that builds it, then read by the
// hyperparameter persister, and discarded when the task returns.
type ObjectDict struct {
	Config     *config.Tree
	DataModule DataModule
	Model      Model
	Callbacks  []Callback
	ExpLoggers []ExpLogger
	Trainer    Trainer
}
