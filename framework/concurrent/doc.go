// Package concurrent runs independent work items with a concurrency limit
// and keeps results in input order.
//
// Settle keeps a per-item outcome so one failing item never hides the
// others:
//
//	outcomes := concurrent.Settle(ctx, testIDs, 2, analyze)
//	for _, o := range outcomes {
//	    if o.Err != nil { ... }
//	}
package concurrent
