package pipeline

import "time"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Observer receives run lifecycle events. Implementations must be safe for
// concurrent use since runs for different users overlap.
type Observer interface {
	RunStarted()
	StageCompleted(stage string, took time.Duration)
	RunFinished(outcome, kind string, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) RunStarted()                               {}
func (nopObserver) StageCompleted(string, time.Duration)      {}
func (nopObserver) RunFinished(string, string, time.Duration) {}
