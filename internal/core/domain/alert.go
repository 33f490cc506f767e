package domain

import "time"

// Severity classifies an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// BatchMetrics summarises one ingest run for reporting and alerting.
type BatchMetrics struct {
	// Mode is "full" or "incremental".
	Mode string

	// Discovered is the number of decks in the remote listing.
	Discovered int

	// Processed is the number of decks that entered the pipeline.
	Processed int

	// Succeeded counts decks that reached success this run,
	// including hash-match short circuits.
	Succeeded int

	// Failed counts decks that exhausted their retries or hit a
	// content error.
	Failed int

	// Deleted counts decks removed from the index.
	Deleted int

	// FailedDecks names each failed deck with its error message.
	FailedDecks []FailedDeck

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// FailedDeck pairs a deck name with its captured error.
type FailedDeck struct {
	RemoteID string
	Name     string
	Error    string
}

// FailureRate returns the fraction of processed decks that failed.
func (m BatchMetrics) FailureRate() float64 {
	if m.Processed == 0 {
		return 0
	}
	return float64(m.Failed) / float64(m.Processed)
}

// Alert is the signal delivered to the alert sink when a run's
// failure rate exceeds the configured threshold.
type Alert struct {
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
	Metrics  BatchMetrics `json:"metrics"`
}
