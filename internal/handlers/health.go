package handlers

import (
	"net/http"
)

// HealthStatus reports dependency readiness for probes.
type HealthStatus struct {
	Status          string `json:"status"`
	StorageMode     string `json:"storageMode"`
	NonceStoreMode  string `json:"nonceStoreMode"`
	ChainConfigured bool   `json:"chainConfigured"`
	ListenerRunning bool   `json:"listenerRunning"`
}

type HealthHandler struct {
	storageMode     string
	nonceStoreMode  string
	chainConfigured bool
	listenerRunning func() bool
}

func NewHealthHandler(storageMode, nonceStoreMode string, chainConfigured bool, listenerRunning func() bool) *HealthHandler {
	return &HealthHandler{
		storageMode:     storageMode,
		nonceStoreMode:  nonceStoreMode,
		chainConfigured: chainConfigured,
		listenerRunning: listenerRunning,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	running := false
	if h.listenerRunning != nil {
		running = h.listenerRunning()
	}

	writeJSONResponse(w, http.StatusOK, HealthStatus{
		Status:          "ok",
		StorageMode:     h.storageMode,
		NonceStoreMode:  h.nonceStoreMode,
		ChainConfigured: h.chainConfigured,
		ListenerRunning: running,
	})
}
