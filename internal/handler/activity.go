package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/alojadmin/internal/model"
	"github.com/dukerupert/alojadmin/internal/store"
)

type ActivityHandler struct {
	store  *store.ActivityStore
	logger *slog.Logger
}

func NewActivityHandler(as *store.ActivityStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{store: as, logger: logger}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit inválido")
			return
		}
		limit = n
	}

	entries, err := h.store.ListRecent(limit)
	if err != nil {
		h.logger.Error("list activity", "error", err)
		writeError(w, http.StatusInternalServerError, "No se pudo cargar la actividad")
		return
	}
	if entries == nil {
		entries = []model.Activity{}
	}
	writeJSON(w, http.StatusOK, entries)
}
