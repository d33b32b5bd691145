// Package source reads raw export files (CSV and JSON, local or in object
// storage) into untyped batches and profiles them for the source registry.
package source
