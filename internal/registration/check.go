package registration

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/zjrosen/barangay/internal/log"
)

// RegistrationQuery reports how many active official registrations a
// resident holds. Negative counts are treated as a failed query.
type RegistrationQuery interface {
	IsAlreadyOfficial(ctx context.Context, residentID string) (int, error)
}

// CheckResult is the outcome of a registration check. OK is false when the
// query itself failed, which is distinct from "no registration found".
type CheckResult struct {
	OK                      bool
	HasExistingRegistration bool
}

// Checker wraps a RegistrationQuery with an observable in-progress flag.
// Concurrent checks for the same resident share one request.
type Checker struct {
	query    RegistrationQuery
	inFlight atomic.Int32
	group    singleflight.Group
}

// NewChecker creates a Checker.
func NewChecker(query RegistrationQuery) *Checker {
	return &Checker{query: query}
}

// Check queries residentID. The in-progress flag is held for the duration
// of the call and released on every path.
func (c *Checker) Check(ctx context.Context, residentID string) CheckResult {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	v, err, shared := c.group.Do(residentID, func() (any, error) {
		return c.query.IsAlreadyOfficial(ctx, residentID)
	})
	if err != nil {
		log.ErrorErr(log.CatForm, "registration check failed", err, "resident", residentID)
		return CheckResult{}
	}
	n, _ := v.(int)
	if n < 0 {
		log.Warn(log.CatForm, "registration check returned error code", "resident", residentID, "code", n)
		return CheckResult{}
	}
	log.Debug(log.CatForm, "registration check", "resident", residentID, "count", n, "shared", shared)
	return CheckResult{OK: true, HasExistingRegistration: n > 0}
}

// InProgress reports whether any check is running.
func (c *Checker) InProgress() bool {
	return c.inFlight.Load() > 0
}
