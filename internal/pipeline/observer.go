package pipeline

import (
	"time"

	"grantreview/internal/review"
)

// Observer receives run telemetry. Implementations must be safe for
// concurrent use; batch runs share one observer.
type Observer interface {
	StageFinished(stage review.Stage, status review.StageState, d time.Duration)
	RunFinished(report *review.FinalReport)
}

type nopObserver struct{}

func (nopObserver) StageFinished(review.Stage, review.StageState, time.Duration) {}
func (nopObserver) RunFinished(*review.FinalReport)                              {}
