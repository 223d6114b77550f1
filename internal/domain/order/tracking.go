package order

import "time"

// Milestone labels in display order
const (
	MilestoneOrdered             = "Ordered"
	MilestoneProcessingStarted   = "Processing started"
	MilestoneProcessingConfirmed = "Processing confirmed"
	MilestoneFulfilled           = "Fulfilled"
)

// TrackingMilestone is one step of the user-facing delivery timeline.
// Milestones are derived on every read, never persisted.
type TrackingMilestone struct {
	Label     string
	Target    time.Time // CreatedAt + nominal offset, heuristic only
	Completed bool
}

// milestoneSpec ties a label to the status rank that resolves it and the
// nominal offset used as a fallback heuristic.
type milestoneSpec struct {
	label        string
	requiredRank int
	offset       time.Duration
}

var milestoneSpecs = []milestoneSpec{
	{MilestoneOrdered, 0, 0},
	{MilestoneProcessingStarted, 1, 2 * time.Minute},
	{MilestoneProcessingConfirmed, 2, 48 * time.Hour},
	{MilestoneFulfilled, 3, 96 * time.Hour},
}

// completion is the resolution of a single milestone: either the persisted
// status resolved it, or a time heuristic produced a provisional answer.
type completion struct {
	resolved  bool
	completed bool
}

// resolveMilestone prefers the explicit status over the time heuristic.
// The status resolves a milestone when it has advanced at least that far,
// or when the order is cancelled (timeline frozen at "Ordered").
func resolveMilestone(status OrderStatus, spec milestoneSpec, elapsed time.Duration) completion {
	if spec.requiredRank == 0 {
		return completion{resolved: true, completed: true}
	}
	if status == OrderStatusCancelled {
		return completion{resolved: true, completed: false}
	}
	if status.rank() >= spec.requiredRank {
		return completion{resolved: true, completed: true}
	}
	return completion{resolved: false, completed: elapsed >= spec.offset}
}

// Project derives the ordered milestone timeline for an order at the given
// instant. Explicit status always overrides the time heuristic: a shipped
// order reports "Processing confirmed" completed even before its nominal
// offset has elapsed. Completion is monotone along the timeline and over
// the order's lifetime.
func Project(o *Order, now time.Time) []TrackingMilestone {
	elapsed := now.Sub(o.CreatedAt)

	milestones := make([]TrackingMilestone, 0, len(milestoneSpecs))
	for _, spec := range milestoneSpecs {
		c := resolveMilestone(o.Status, spec, elapsed)
		milestones = append(milestones, TrackingMilestone{
			Label:     spec.label,
			Target:    o.CreatedAt.Add(spec.offset),
			Completed: c.completed,
		})
	}
	return milestones
}

// Progress returns completed-milestone-count / total-milestone-count
// as a percentage in [0, 100].
func Progress(milestones []TrackingMilestone) int {
	if len(milestones) == 0 {
		return 0
	}
	completed := 0
	for _, m := range milestones {
		if m.Completed {
			completed++
		}
	}
	return completed * 100 / len(milestones)
}
