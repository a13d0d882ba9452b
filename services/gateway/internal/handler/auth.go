package handler

import (
	"net/http"

	authpb "github.com/DeadlyParkour777/code-room/pkg/auth"
	"github.com/DeadlyParkour777/code-room/pkg/utils"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
)

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.authClient.Register(r.Context(), &authpb.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.authClient.Login(r.Context(), &authpb.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}

// handleRefresh accepts the token in the body or as a bearer header.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req types.RefreshRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	if req.Token == "" {
		token, ok := bearerToken(r)
		if !ok {
			utils.WriteError(w, http.StatusBadRequest, "token is required")
			return
		}
		req.Token = token
	}

	resp, err := h.authClient.RefreshToken(r.Context(), &authpb.RefreshRequest{Token: req.Token})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
