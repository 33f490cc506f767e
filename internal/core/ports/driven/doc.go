// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports). The pipeline core depends only on these
// interfaces; concrete adapters live under internal/adapters/driven
// and internal/connectors.
package driven
