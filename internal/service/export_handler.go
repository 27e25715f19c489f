package service

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/grouporder/internal/export"
	"github.com/mmynk/grouporder/internal/storage"
)

// ExportPattern is the route of the plain-text export.
const ExportPattern = "GET /api/groups/{groupId}/export"

// NewExportHandler serves a group's SMS text as text/plain, for pasting or
// piping without a Connect client.
func NewExportHandler(store GroupStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		groupID := r.PathValue("groupId")

		group, err := store.FetchGroup(r.Context(), groupID)
		if err != nil {
			if errors.Is(err, storage.ErrGroupNotFound) {
				http.Error(w, "group not found", http.StatusNotFound)
				return
			}
			slog.Error("Export failed", "group_id", groupID, "error", err)
			http.Error(w, "failed to load group", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := w.Write([]byte(export.Format(group.Orders))); err != nil {
			slog.Warn("Export write failed", "group_id", groupID, "error", err)
		}
	})
}
