// Package migrations contains the FitForge schema. Each migration registers
// itself from init(); cmd/fitforge imports this package for its side effect.
package migrations
