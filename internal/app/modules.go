package app

import (
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/modules/env_vars"
	"github.com/specialistvlad/taskgraph/modules/http_request"
	"github.com/specialistvlad/taskgraph/modules/print"
	"github.com/specialistvlad/taskgraph/modules/s3"
	"github.com/specialistvlad/taskgraph/modules/serialize"
	"github.com/specialistvlad/taskgraph/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the taskgraph binary.
var coreModules = []registry.Module{
	&env_vars.Module{},
	&print.Module{},
	&http_request.Module{},
	&socketio.Module{},
	&serialize.Module{},
	&s3.Module{},
}
