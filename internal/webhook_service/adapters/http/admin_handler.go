package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/app"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
)

// AdminHandler exposes the registration lifecycle operations over HTTP. The
// acting user comes from the JWT subject set by AuthMiddleware; all
// ownership checks key off it.
type AdminHandler struct {
	lifecycle *app.LifecycleService
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(lifecycle *app.LifecycleService, validate *validator.Validate, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		lifecycle: lifecycle,
		validate:  validate,
		logger:    logger.With("handler", "admin"),
	}
}

// HandleRegister serves POST /api/rooms/{room_id}/webhooks.
func (h *AdminHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	roomID := chi.URLParam(r, "room_id")
	userID := ActingUserFromContext(ctx)

	var req RegisterWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "url is required")
		return
	}

	var templateJSON *string
	if len(req.Template) > 0 {
		s := string(req.Template)
		templateJSON = &s
	}

	reg, err := h.lifecycle.Register(ctx, roomID, userID, req.URL, templateJSON)
	if err != nil {
		logger.WarnContext(ctx, "Register failed", "room_id", roomID, "user_id", userID, "error", err)
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutgoingResponse(reg))
}

// HandleList serves GET /api/rooms/{room_id}/webhooks.
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := chi.URLParam(r, "room_id")

	regs, err := h.lifecycle.List(ctx, roomID)
	if err != nil {
		h.logger.ErrorContext(ctx, "List failed", "room_id", roomID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list webhooks")
		return
	}

	resp := make([]OutgoingWebhookResponse, 0, len(regs))
	for _, reg := range regs {
		resp = append(resp, toOutgoingResponse(reg))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleUnregister serves DELETE /api/rooms/{room_id}/webhooks.
func (h *AdminHandler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	h.mutateBySelector(w, r, h.lifecycle.Unregister)
}

// HandleEnable serves POST /api/rooms/{room_id}/webhooks/enable.
func (h *AdminHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.mutateBySelector(w, r, h.lifecycle.Enable)
}

// HandleDisable serves POST /api/rooms/{room_id}/webhooks/disable.
func (h *AdminHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.mutateBySelector(w, r, h.lifecycle.Disable)
}

// HandleCreateIncoming serves POST /api/rooms/{room_id}/inbound.
func (h *AdminHandler) HandleCreateIncoming(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	roomID := chi.URLParam(r, "room_id")
	userID := ActingUserFromContext(ctx)

	reg, apiKey, err := h.lifecycle.CreateIncoming(ctx, roomID, userID)
	if err != nil {
		logger.ErrorContext(ctx, "Incoming webhook creation failed",
			"room_id", roomID, "user_id", userID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to create incoming webhook")
		return
	}

	writeJSON(w, http.StatusCreated, IncomingWebhookResponse{
		ID:        reg.ID.String(),
		RoomID:    reg.RoomID,
		UserID:    reg.UserID,
		APIKey:    apiKey,
		Enabled:   reg.Enabled,
		CreatedAt: reg.CreatedAt,
	})
}

// HandleDeleteIncoming serves DELETE /api/rooms/{room_id}/inbound/{id}.
func (h *AdminHandler) HandleDeleteIncoming(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := ActingUserFromContext(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "webhook not found")
		return
	}

	if err := h.lifecycle.DeleteIncoming(ctx, id, userID); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectorOp func(ctx context.Context, roomID, userID string, sel domain.Selector) (int, error)

func (h *AdminHandler) mutateBySelector(w http.ResponseWriter, r *http.Request, op selectorOp) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	roomID := chi.URLParam(r, "room_id")
	userID := ActingUserFromContext(ctx)

	sel, err := selectorFromQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	affected, err := op(ctx, roomID, userID, sel)
	if err != nil {
		logger.WarnContext(ctx, "Lifecycle operation failed",
			"room_id", roomID, "user_id", userID, "error", err)
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Affected: affected})
}

// selectorFromQuery reads the target selector from ?id= or ?url=. Neither
// means "all owned registrations in the room"; both at once is an error.
func selectorFromQuery(r *http.Request) (domain.Selector, error) {
	idParam := r.URL.Query().Get("id")
	urlParam := r.URL.Query().Get("url")

	switch {
	case idParam != "" && urlParam != "":
		return domain.Selector{}, errors.New("id and url selectors are mutually exclusive")
	case idParam != "":
		id, err := strconv.ParseInt(idParam, 10, 64)
		if err != nil {
			return domain.Selector{}, errors.New("id selector must be an integer")
		}
		return domain.IDSelector(id), nil
	case urlParam != "":
		return domain.URLSelector(urlParam), nil
	default:
		return domain.AllSelector(), nil
	}
}

func (h *AdminHandler) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		writeJSONError(w, http.StatusBadRequest, "url must be a valid http or https URL")
	case errors.Is(err, domain.ErrInvalidTemplate):
		writeJSONError(w, http.StatusBadRequest, "template must be a JSON object")
	case errors.Is(err, domain.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "webhook not found")
	case errors.Is(err, domain.ErrAccessDenied):
		writeJSONError(w, http.StatusForbidden, "you do not own this webhook")
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
