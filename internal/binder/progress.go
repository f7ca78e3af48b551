package binder

// ProgressFunc receives coarse generation milestones. Implementations
// must be fast; the engine calls them inline between steps.
type ProgressFunc func(percent int, step string)

// notify is nil-safe so call sites don't guard.
func (f ProgressFunc) notify(percent int, step string) {
	if f != nil {
		f(percent, step)
	}
}

// Event is one progress milestone, suitable for streaming to a client.
type Event struct {
	Percent int    `json:"percent"`
	Step    string `json:"step"`
}
