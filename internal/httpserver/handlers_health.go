package httpserver

import (
	"net/http"
	"time"

	"github.com/StorefrontLabs/checkout-server/pkg/responders"
)

// health returns basic service liveness. Storage and provider connectivity
// surface through metrics and logs, not here; a health probe must stay cheap.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	responders.JSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(serverStartTime).String(),
		"timestamp": now.UTC(),
	})
}
