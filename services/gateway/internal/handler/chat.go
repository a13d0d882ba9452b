package handler

import (
	"net/http"
	"time"

	"github.com/DeadlyParkour777/code-room/pkg/utils"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req types.PostMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.service.PostMessage(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := types.MessageQuery{
		Channel: types.Channel(r.URL.Query().Get("channel")),
		Limit:   utils.QueryInt(r, "limit", 0),
	}
	if before := r.URL.Query().Get("before"); before != "" {
		t, err := time.Parse(time.RFC3339Nano, before)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
			return
		}
		q.Before = t
	}

	msgs, err := h.service.ListMessages(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req types.AskRequest
	if !h.decode(w, r, &req) {
		return
	}

	reply, err := h.service.Ask(r.Context(), identityFrom(r), chi.URLParam(r, "roomID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reply)
}
