package ports

import "time"

// DirectoryMetrics receives the service-level observations exported as
// Prometheus metrics.
type DirectoryMetrics interface {
	ObserveOperation(operation string, err error, elapsed time.Duration)
	ObserveConflict(operation string)
	ObservePartialWrite(operation string)
	ObserveLogin(result string)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) ObserveOperation(string, error, time.Duration) {}
func (NopMetrics) ObserveConflict(string)                        {}
func (NopMetrics) ObservePartialWrite(string)                    {}
func (NopMetrics) ObserveLogin(string)                           {}
