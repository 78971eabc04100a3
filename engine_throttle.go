package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/rvasily/authcore/internal/governor"
	internalmetrics "github.com/rvasily/authcore/internal/metrics"
)

// Throttle admits one request from callerKey against the policy of the
// given route class. Requests under the threshold return immediately; each
// request over it sleeps for a proportionally longer delay, and past the
// policy's cap the request fails with ErrRateLimited. The sleep honors ctx
// cancellation. Exempt route classes always pass.
//
// callerKey is whatever identity the caller throttles on, typically a
// client IP or API key.
func (e *Engine) Throttle(ctx context.Context, callerKey, routeClass string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	pol := e.policies.Lookup(routeClass)
	if pol.Exempt {
		return nil
	}

	delay, err := e.window.Reserve(ctx, callerKey, pol)
	if err != nil {
		if errors.Is(err, governor.ErrRateLimited) {
			e.metricInc(internalmetrics.MetricThrottleRejected)
			e.auditEmit(ctx, AuditEvent{
				EventType: "throttle_rejected",
				SubjectID: callerKey,
				Metadata:  map[string]string{"route": pol.Class},
			})
			return ErrRateLimited
		}
		return e.internalErr("throttle reserve", err)
	}
	if delay <= 0 {
		return nil
	}

	e.metricInc(internalmetrics.MetricThrottleDelayed)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
