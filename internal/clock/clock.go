// Package clock wraps the quartz clock interface the policy player's
// per-decision timing budget is measured against: production code runs
// against the real clock, while tests advance a quartz.Mock by hand instead
// of sleeping for real wall time.
package clock

import "github.com/coder/quartz"

// Clock is the timing surface GetAction's budget check needs: Now and
// Since, nothing more.
type Clock = quartz.Clock

// Real returns the production clock.
func Real() Clock {
	return quartz.NewReal()
}
