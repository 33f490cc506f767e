// Package services implements the driving port interfaces.
// Services contain the core business logic: change detection, the
// staged ingest pipeline with its per-stage concurrency ceilings, the
// retry policy, and search. They orchestrate calls to driven ports
// (adapters) and never touch infrastructure directly.
package services
