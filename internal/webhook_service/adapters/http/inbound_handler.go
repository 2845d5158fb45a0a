package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/adapters/chat"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/app"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/repository"
)

// MaxRequestBodySize caps inbound webhook bodies at 1 MB.
const MaxRequestBodySize = 1 << 20

// dummyAPIKeyHash is compared against when no registration exists, so the
// unknown-id path costs the same as a real key mismatch.
var dummyAPIKeyHash = app.HashAPIKey("")

// InboundMessageRequest is the body an external caller posts to push a
// message into a room.
type InboundMessageRequest struct {
	Message       string `json:"message" validate:"required"`
	FormattedBody string `json:"formatted_body,omitempty"`
}

// InboundHandler authenticates external webhook POSTs and turns them into
// chat messages.
type InboundHandler struct {
	incomingRepo repository.IncomingRepository
	chatClient   chat.Client
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewInboundHandler creates an InboundHandler.
func NewInboundHandler(
	incomingRepo repository.IncomingRepository,
	chatClient chat.Client,
	validate *validator.Validate,
	logger *slog.Logger,
) *InboundHandler {
	return &InboundHandler{
		incomingRepo: incomingRepo,
		chatClient:   chatClient,
		validate:     validate,
		logger:       logger.With("handler", "inbound"),
	}
}

// HandleInbound serves POST /webhook/{webhook_id}.
//
// Unknown IDs, disabled registrations, and wrong API keys all get the same
// not-found response: a caller probing for webhook IDs learns nothing from
// either the response or, thanks to the dummy compare, its timing. Only a
// request carrying no usable bearer credential at all is answered 401.
func (h *InboundHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi_middleware.GetReqID(ctx)
	logger := h.logger.With("request_id", requestID)

	presentedKey, ok := bearerCredential(r)
	if !ok {
		logger.WarnContext(ctx, "Inbound request without bearer credential")
		inboundRequestsCounter.WithLabelValues("rejected_unauthorized").Inc()
		writeJSONError(w, http.StatusUnauthorized, "missing bearer credential")
		return
	}

	webhookID, err := uuid.Parse(chi.URLParam(r, "webhook_id"))
	if err != nil {
		app.VerifyAPIKey(dummyAPIKeyHash, presentedKey)
		logger.WarnContext(ctx, "Inbound request with malformed webhook id")
		inboundRequestsCounter.WithLabelValues("rejected_not_found").Inc()
		writeJSONError(w, http.StatusNotFound, "webhook not found")
		return
	}
	logger = logger.With("webhook_id", webhookID)

	reg, err := h.incomingRepo.GetByID(ctx, webhookID)
	if err != nil || !reg.Enabled {
		app.VerifyAPIKey(dummyAPIKeyHash, presentedKey)
		logger.WarnContext(ctx, "Inbound request for unknown or disabled webhook")
		inboundRequestsCounter.WithLabelValues("rejected_not_found").Inc()
		writeJSONError(w, http.StatusNotFound, "webhook not found")
		return
	}

	if !app.VerifyAPIKey(reg.APIKeyHash, presentedKey) {
		logger.WarnContext(ctx, "Inbound request with invalid API key")
		inboundRequestsCounter.WithLabelValues("rejected_not_found").Inc()
		writeJSONError(w, http.StatusNotFound, "webhook not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WarnContext(ctx, "Failed to read inbound request body", "error", err)
		inboundRequestsCounter.WithLabelValues("rejected_bad_request").Inc()
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req InboundMessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.WarnContext(ctx, "Inbound request body is not valid JSON", "error", err)
		inboundRequestsCounter.WithLabelValues("rejected_bad_request").Inc()
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil || strings.TrimSpace(req.Message) == "" {
		logger.WarnContext(ctx, "Inbound request failed validation", "error", err)
		inboundRequestsCounter.WithLabelValues("rejected_bad_request").Inc()
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := h.chatClient.SendMessage(ctx, reg.RoomID, req.Message, req.FormattedBody); err != nil {
		logger.ErrorContext(ctx, "Failed to send inbound message to room",
			"room_id", reg.RoomID, "error", err)
		inboundRequestsCounter.WithLabelValues("error").Inc()
		writeJSONError(w, http.StatusInternalServerError, "failed to deliver message")
		return
	}

	// Best effort: a failed touch must not fail an already-delivered message.
	if err := h.incomingRepo.TouchLastUsed(ctx, webhookID, time.Now().UTC()); err != nil {
		logger.WarnContext(ctx, "Failed to update last_used_at", "error", err)
	}

	logger.InfoContext(ctx, "Inbound message accepted", "room_id", reg.RoomID)
	inboundRequestsCounter.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func bearerCredential(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
