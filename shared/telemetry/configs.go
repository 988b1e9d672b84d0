package telemetry

// BookingServiceConfig is the telemetry configuration for the booking service
var BookingServiceConfig = Config{
	ServiceName:    "booking-service",
	ServiceVersion: "1.0.0",
}

// WithOTLPEndpoint sets the OTLP endpoint for a config
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

// WithVersion sets the service version for a config
func (c Config) WithVersion(version string) Config {
	c.ServiceVersion = version
	return c
}
