package instance

import (
	"os"

	"github.com/lensbook/lensbook-backend/pkg/env"
)

const fallbackID = "instance-0"

// GetID returns the process instance identifier used in logs and lock values.
// LENSBOOK_INSTANCE_ID wins, then the Cloud Run revision, then the hostname.
func GetID() string {
	if id, ok := env.First("LENSBOOK_INSTANCE_ID", "K_REVISION"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
