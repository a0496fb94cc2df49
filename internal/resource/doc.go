// Package resource bounds the resources used by archive uploads.
//
// A Controller manages two resource types:
//
//   - Concurrency: worker slots for parallel block compression (semaphore)
//   - IO: a token bucket limiting upload throughput
//
// # Usage
//
//	rc := resource.NewController(resource.Config{
//	    MaxWorkers:         4,
//	    IOLimitBytesPerSec: 32 << 20, // 32MB/s
//	})
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
//	w := resource.NewRateLimitedWriter(ctx, blob, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
