package driven

// Telemetry records service-level counters.
type Telemetry interface {
	// LoginCompleted records a login outcome: "success" or the failing stage.
	LoginCompleted(outcome string)

	// TokenInvalidated records a bundle cleared after the provider rejected its token.
	// source is "metrics", "refresh" or "refresher".
	TokenInvalidated(source string)

	// TokenRefreshed records a refresh outcome: "success", "invalidated" or "error".
	TokenRefreshed(outcome string)
}

// NopTelemetry discards all events.
type NopTelemetry struct{}

func (NopTelemetry) LoginCompleted(string)   {}
func (NopTelemetry) TokenInvalidated(string) {}
func (NopTelemetry) TokenRefreshed(string)   {}
