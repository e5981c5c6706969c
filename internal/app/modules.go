package app

import (
	"github.com/vk/trainriggo/internal/registry"
	"github.com/vk/trainriggo/modules/checkpoint"
	"github.com/vk/trainriggo/modules/csvdata"
	"github.com/vk/trainriggo/modules/csvlogger"
	"github.com/vk/trainriggo/modules/earlystop"
	"github.com/vk/trainriggo/modules/linear"
	"github.com/vk/trainriggo/modules/looptrainer"
	"github.com/vk/trainriggo/modules/mlflowlog"
	"github.com/vk/trainriggo/modules/webhooklog"
)

// CoreModules is the definitive list of all component modules that are
// compiled into the trainriggo binary.
var CoreModules = []registry.Module{
	&csvdata.Module{},
	&linear.Module{},
	&looptrainer.Module{},
	&checkpoint.Module{},
	&earlystop.Module{},
	&csvlogger.Module{},
	&mlflowlog.Module{},
	&webhooklog.Module{},
}
