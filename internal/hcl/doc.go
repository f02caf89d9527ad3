// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, HCL-to-model translation,
// and CTY-to-Go conversion of literal argument values.
package hcl
