// Package enhance prepares image payloads and submits them to a hosted
// super-resolution model.
package enhance

import "context"

// Provider submits an image to an enhancement model and returns the URL of
// the enhanced result. Implementations must honor ctx cancellation; the
// caller sets the deadline.
type Provider interface {
	Enhance(ctx context.Context, imageDataURI string, scale int) (string, error)
}
