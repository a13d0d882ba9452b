package handler

import (
	"net/http"

	"github.com/DeadlyParkour777/code-room/pkg/utils"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRunRequest
	if !h.decode(w, r, &req) {
		return
	}

	run, err := h.service.CreateRun(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), types.CreateRun{
		FileID:   req.FileID,
		Language: req.Language,
		Source:   req.Source,
		Stdin:    req.Stdin,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusAccepted, run)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.ListRuns(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), chi.URLParam(r, "runID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, run)
}
