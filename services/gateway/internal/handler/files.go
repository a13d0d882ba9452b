package handler

import (
	"net/http"

	"github.com/DeadlyParkour777/code-room/pkg/utils"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req types.CreateFileRequest
	if !h.decode(w, r, &req) {
		return
	}

	file, err := h.service.CreateFile(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, file)
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListFiles(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, files)
}

func (h *Handler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.GetFile(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), chi.URLParam(r, "fileID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, file)
}

// handleSaveFile answers 202 while the content waits for the autosave and
// 200 once it is persisted.
func (h *Handler) handleSaveFile(w http.ResponseWriter, r *http.Request) {
	var req types.SaveFileRequest
	if !h.decode(w, r, &req) {
		return
	}

	file, err := h.service.SaveFile(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), chi.URLParam(r, "fileID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	code := http.StatusOK
	if file.Pending {
		code = http.StatusAccepted
	}
	utils.WriteJSON(w, code, file)
}

func (h *Handler) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateFileRequest
	if !h.decode(w, r, &req) {
		return
	}

	file, err := h.service.RenameFile(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), chi.URLParam(r, "fileID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, file)
}

func (h *Handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteFile(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), chi.URLParam(r, "fileID")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
