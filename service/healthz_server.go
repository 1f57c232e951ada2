package service

import (
	"net/http"
)

// HealthzServer answers liveness probes
type HealthzServer struct{}

func (h *HealthzServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK")) //nolint:errcheck
}
