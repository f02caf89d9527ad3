// Package config defines the format-agnostic model of a graph document, along
// with the Loader interface implemented by the HCL and YAML readers.
//
// The `config.Model` is the single source of truth for the `builder`
// package, which validates it into an executable graph. Concrete loaders
// live in separate packages.
package config
