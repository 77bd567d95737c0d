// Package types defines the narrative graph entities, the DeltaBatch write
// primitive, the Store interface, validation and diff result types, and the
// standard error values shared by every layer of the Weft engine.
package types
