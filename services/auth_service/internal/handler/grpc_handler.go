package handler

import (
	"context"
	"errors"

	authpb "github.com/DeadlyParkour777/code-room/pkg/auth"
	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/service"
	"github.com/DeadlyParkour777/code-room/services/auth_service/internal/types"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type GrpcHandler struct {
	service service.Service
	logger  *zap.Logger
	authpb.UnimplementedAuthServiceServer
}

func NewGrpcHandler(service service.Service, logger *zap.Logger) *GrpcHandler {
	return &GrpcHandler{service: service, logger: logger}
}

func (h *GrpcHandler) Register(ctx context.Context, req *authpb.RegisterRequest) (*authpb.RegisterResponse, error) {
	if req.GetUsername() == "" || req.GetPassword() == "" {
		return nil, status.Error(codes.InvalidArgument, "username and password are required")
	}

	user, err := h.service.Register(ctx, &types.UserRegisterPayload{
		Username: req.GetUsername(),
		Password: req.GetPassword(),
	})
	if err != nil {
		if errors.Is(err, types.ErrUserExists) {
			return nil, status.Error(codes.AlreadyExists, err.Error())
		}
		h.logger.Error("register failed", zap.String("username", req.GetUsername()), zap.Error(err))
		return nil, status.Error(codes.Internal, "registration failed")
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID))
	return &authpb.RegisterResponse{
		UserId:  user.ID,
		Message: "User registered",
	}, nil
}

func (h *GrpcHandler) Login(ctx context.Context, req *authpb.LoginRequest) (*authpb.LoginResponse, error) {
	user, token, err := h.service.Login(ctx, &types.UserLoginPayload{
		Username: req.GetUsername(),
		Password: req.GetPassword(),
	})
	if err != nil {
		if errors.Is(err, types.ErrInvalidCredentials) {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		h.logger.Error("login failed", zap.String("username", req.GetUsername()), zap.Error(err))
		return nil, status.Error(codes.Internal, "login failed")
	}

	return &authpb.LoginResponse{AccessToken: token, UserId: user.ID, Username: user.Username}, nil
}

func (h *GrpcHandler) ValidateToken(ctx context.Context, req *authpb.ValidateRequest) (*authpb.ValidateResponse, error) {
	id, err := h.service.ValidateToken(ctx, req.GetToken())
	if err != nil {
		return &authpb.ValidateResponse{Valid: false}, nil
	}

	return &authpb.ValidateResponse{Valid: true, UserId: id.UserID, Role: id.Role, Username: id.Username}, nil
}

func (h *GrpcHandler) RefreshToken(ctx context.Context, req *authpb.RefreshRequest) (*authpb.RefreshResponse, error) {
	token, err := h.service.RefreshToken(ctx, req.GetToken())
	if err != nil {
		if errors.Is(err, types.ErrInvalidToken) {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		h.logger.Error("refresh failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "refresh failed")
	}

	return &authpb.RefreshResponse{AccessToken: token}, nil
}
