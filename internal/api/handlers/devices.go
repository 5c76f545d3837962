package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"snapcircle/internal/api"
	"snapcircle/internal/types"
)

// DeviceRepo defines the data access contract for push device registration.
type DeviceRepo interface {
	Create(ctx context.Context, device *types.Device) (*types.Device, error)
	Unregister(ctx context.Context, token string) error
}

// RegisterDeviceRequest is the request body for POST /v1/devices.
type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required,max=256"`
	Platform string `json:"platform" validate:"required,oneof=ios android"`
}

// DeviceHandler manages push device registration. Registration is idempotent
// per (token, user); re-registering updates the platform in place.
type DeviceHandler struct {
	devices   DeviceRepo
	validator *api.Validator
	logger    *slog.Logger
}

// NewDeviceHandler creates a DeviceHandler with the provided dependencies.
func NewDeviceHandler(devices DeviceRepo, validator *api.Validator, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{
		devices:   devices,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the device endpoints onto the authenticated router.
func (h *DeviceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/devices", h.HandleRegister)
	r.Delete("/devices/{token}", h.HandleUnregister)
}

// HandleRegister registers the caller's push token.
func (h *DeviceHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)

	var req RegisterDeviceRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	device, err := h.devices.Create(ctx, &types.Device{
		ID:        uuid.NewString(),
		Token:     req.Token,
		Platform:  types.DevicePlatform(req.Platform),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	h.logger.Info("device registered", "user_id", userID, "platform", req.Platform)

	api.JSON(w, r, http.StatusCreated, api.APIResponse{Data: device})
}

// HandleUnregister removes a push token.
func (h *DeviceHandler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	if err := h.devices.Unregister(r.Context(), chi.URLParam(r, "token")); err != nil {
		api.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
