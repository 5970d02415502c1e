// Package retry retries transient failures of outbound calls (Grafana REST,
// Kubernetes API) with exponential backoff.
//
//	dash, err := retry.DoWithData(ctx, func(ctx context.Context) (*Dashboard, error) {
//	    return c.fetch(ctx, uid)
//	}, retry.WithMaxAttempts(4), retry.WithRetryIf(retry.IsTransient))
//
// HTTP callers report non-2xx responses as *StatusError so IsTransient can
// tell a 503 from a 404. Wrap an error with Permanent to stop immediately.
package retry
