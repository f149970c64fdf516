package fetch

import "time"

// rateState implements a fixed-window counter plus a minimum inter-request
// interval. Callers synchronize through the gateway's rate mutex.
type rateState struct {
	windowStart      time.Time
	requestsInWindow int
	lastRequest      time.Time
}

const rateWindow = time.Minute

// delayUntilAllowed returns the minimal sleep needed before the next request
// may go out. It does not mutate state; call recordRequest once the request
// is actually sent.
func (r *rateState) delayUntilAllowed(now time.Time, perMinute int, minInterval time.Duration) time.Duration {
	var delay time.Duration

	if !r.lastRequest.IsZero() {
		if since := now.Sub(r.lastRequest); since < minInterval {
			delay = minInterval - since
		}
	}

	if perMinute > 0 && !r.windowStart.IsZero() {
		windowEnd := r.windowStart.Add(rateWindow)
		if now.Before(windowEnd) && r.requestsInWindow >= perMinute {
			if until := windowEnd.Sub(now); until > delay {
				delay = until
			}
		}
	}

	return delay
}

func (r *rateState) recordRequest(now time.Time) {
	if r.windowStart.IsZero() || now.Sub(r.windowStart) >= rateWindow {
		r.windowStart = now
		r.requestsInWindow = 0
	}
	r.requestsInWindow++
	r.lastRequest = now
}
