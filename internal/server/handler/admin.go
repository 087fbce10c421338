package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// KeyLister enumerates the loaded API keys.
type KeyLister interface {
	List() []domain.APIKeyInfo
}

// AdminHandler serves key administration reads. The route sits under the
// admin prefix, so the auth middleware already enforces admin scope.
type AdminHandler struct {
	keys   KeyLister
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler over the loaded keyring.
func NewAdminHandler(keys KeyLister, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{keys: keys, logger: logHandler(logger, "admin")}
}

// ListKeys returns the loaded keys with hashes truncated for display.
// GET /api/v2/admin/keys
func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	records := h.keys.List()
	rows := make([]map[string]any, 0, len(records))
	for _, k := range records {
		hashPrefix := k.KeyHash
		if len(hashPrefix) > 12 {
			hashPrefix = hashPrefix[:12]
		}
		row := map[string]any{
			"key_hash_prefix": hashPrefix,
			"name":            k.Name,
			"scopes":          k.Scopes,
			"created_at":      k.CreatedAt.Format(time.RFC3339),
			"revoked":         k.Revoked,
			"usable":          k.Usable(now),
		}
		if k.ExpiresAt != nil {
			row["expires_at"] = k.ExpiresAt.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"keys":      rows,
		"count":     len(rows),
		"timestamp": now.Format(time.RFC3339),
	})
}
