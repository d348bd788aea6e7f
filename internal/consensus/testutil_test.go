package consensus

import "context"

// testContext returns a plain background context for tests that don't
// need to exercise a specific cancellation path.
func testContext() context.Context {
	return context.Background()
}
