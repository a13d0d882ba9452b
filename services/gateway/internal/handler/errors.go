package handler

import (
	"errors"
	"net/http"

	"github.com/DeadlyParkour777/code-room/pkg/utils"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errInvalidToken = errors.New("invalid token")

var statusByError = []struct {
	err    error
	status int
}{
	{types.ErrInvalidInput, http.StatusBadRequest},
	{types.ErrUnsupportedRun, http.StatusBadRequest},
	{types.ErrForbidden, http.StatusForbidden},
	{types.ErrRoomNotFound, http.StatusNotFound},
	{types.ErrFileNotFound, http.StatusNotFound},
	{types.ErrRunNotFound, http.StatusNotFound},
	{types.ErrFileExists, http.StatusConflict},
	{types.ErrRoomFull, http.StatusConflict},
	{types.ErrTooManyFiles, http.StatusConflict},
	{types.ErrCreatorCannotLeave, http.StatusConflict},
	{types.ErrContentTooLarge, http.StatusRequestEntityTooLarge},
	{types.ErrEmptyReply, http.StatusBadGateway},
	{types.ErrAssistantDisabled, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// writeError maps domain errors to their status. Unknown errors are logged
// and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteError(w, code, "internal server error")
		return
	}
	utils.WriteError(w, code, err.Error())
}

// writeAuthError maps auth service status codes.
func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	switch st.Code() {
	case codes.InvalidArgument:
		utils.WriteError(w, http.StatusBadRequest, st.Message())
	case codes.AlreadyExists:
		utils.WriteError(w, http.StatusConflict, st.Message())
	case codes.Unauthenticated:
		utils.WriteError(w, http.StatusUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		h.logger.Warn("auth service unavailable", zap.Error(err))
		utils.WriteError(w, http.StatusServiceUnavailable, "auth service unavailable")
	default:
		h.logger.Error("auth service call failed", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
