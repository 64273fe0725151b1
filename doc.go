// Package relmodel derives a relational schema (tables, views, store
// functions, columns and constraints) from an entity object model, and
// exposes per-entity projection nodes to a query compiler.
//
// The entity metadata lives in the model package. A finalized model is
// handed to relational.Build, which produces a frozen relational.Schema
// holding the deduplicated tables, views and store functions together
// with their synthesized keys, indexes and foreign-key constraints.
// The compiler/projection package builds immutable column-binding nodes
// on top of a frozen schema.
//
// This root package holds the error types shared by all subpackages.
package relmodel
