// Package yaml provides the YAML implementation of the config.Loader
// interface.
//
// A document has up to six top-level sections: types, parameters, tasks,
// graph, artifact_tasks and artifacts. Mapping order is significant, since it
// becomes declaration order, so documents are read through the yaml.v3 node
// API rather than decoded into Go maps.
package yaml
