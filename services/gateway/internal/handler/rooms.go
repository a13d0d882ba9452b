package handler

import (
	"net/http"

	"github.com/DeadlyParkour777/code-room/pkg/utils"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRoomRequest
	if !h.decode(w, r, &req) {
		return
	}

	room, err := h.service.CreateRoom(r.Context(), identityFrom(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, room)
}

func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListRooms(r.Context(), identityFrom(r), r.URL.Query().Get("tag"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, rooms)
}

func (h *Handler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.GetRoom(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, room)
}

func (h *Handler) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateRoomRequest
	if !h.decode(w, r, &req) {
		return
	}

	upd := types.RoomUpdate{Name: req.Name, Description: req.Description}
	if req.Tags != nil {
		upd.Tags, upd.SetTags = *req.Tags, true
	}

	room, err := h.service.UpdateRoom(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, room)
}

func (h *Handler) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRoom(r.Context(), identityFrom(r), chi.URLParam(r, "roomID")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.JoinRoom(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, room)
}

func (h *Handler) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.service.LeaveRoom(r.Context(), identityFrom(r), chi.URLParam(r, "roomID")); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
