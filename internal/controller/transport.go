package controller

import "context"

// Transport performs the device-link handshake during activation. The
// manager never touches sockets or USB itself; implementations live in the
// infrastructure layer (MQTT in production, loopback for transportless
// deployments and tests).
type Transport interface {
	// Handshake initializes the link for a controller instance. It must
	// honor ctx, which carries the activation deadline.
	Handshake(ctx context.Context, controllerID, deviceID string) error
}

// LoopbackTransport completes every handshake immediately. Used when no
// external transport is configured.
type LoopbackTransport struct{}

// Handshake succeeds unless ctx is already done.
func (LoopbackTransport) Handshake(ctx context.Context, _, _ string) error {
	return ctx.Err()
}
