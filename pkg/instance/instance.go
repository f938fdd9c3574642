package instance

import (
	"os"

	"github.com/angelmondragon/tollwatch-backend/pkg/env"
)

const workerIDKey = "TOLLWATCH_WORKER_ID"

// GetID names this replica in logs: TOLLWATCH_WORKER_ID, else the host
// name, else "worker-0".
func GetID() string {
	if id := env.Get(workerIDKey, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
