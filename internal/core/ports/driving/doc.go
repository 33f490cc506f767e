// Package driving provides interfaces for user-facing adapters
// (primary/inbound ports). The CLI drives the pipeline through these.
package driving
