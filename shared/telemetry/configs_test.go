package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_With(t *testing.T) {
	cfg := BookingServiceConfig.WithOTLPEndpoint("localhost:4318").WithVersion("2.1.0")

	assert.Equal(t, "booking-service", cfg.ServiceName)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
	assert.Equal(t, "2.1.0", cfg.ServiceVersion)
	assert.Equal(t, "1.0.0", BookingServiceConfig.ServiceVersion)
}
