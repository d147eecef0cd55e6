package ports

// EmailGateway defines the interface for an inbound mail surface that runs
// the threat pipeline on every message it accepts
type EmailGateway interface {
	// Start starts the gateway
	Start() error

	// Stop stops the gateway
	Stop() error
}
