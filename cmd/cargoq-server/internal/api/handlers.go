// Package api provides HTTP handlers for the cargo-queue REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// MaxVisibilityTimeout caps ?visibilityTimeout= at 12 hours.
const MaxVisibilityTimeout = 12 * 60 * 60

// Handler holds dependencies for API handlers.
type Handler struct {
	queues          *cargoqueue.QueueService
	topics          *cargoqueue.TopicService
	logger          cargoqueue.Logger
	claimVisibility time.Duration
}

// NewHandler creates a new API handler. claimVisibility is the window applied to
// claims that do not name one.
func NewHandler(
	queues *cargoqueue.QueueService,
	topics *cargoqueue.TopicService,
	logger cargoqueue.Logger,
	claimVisibility time.Duration,
) *Handler {
	return &Handler{
		queues:          queues,
		topics:          topics,
		logger:          logger,
		claimVisibility: claimVisibility,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is returned by operations with nothing else to report.
type SuccessResponse struct {
	Success bool `json:"success"`
}

type queueResponse struct {
	Queue interface{} `json:"queue"`
}

type queuesResponse struct {
	Queues interface{} `json:"queues"`
}

type messageResponse struct {
	Message interface{} `json:"message"`
}

type purgeResponse struct {
	Success bool `json:"success"`
	*cargoqueue.PurgeResult
}

type publishResponse struct {
	Success bool `json:"success"`
	*cargoqueue.PublishResult
}

// HandleCreateQueue handles POST /queues
func (h *Handler) HandleCreateQueue(w http.ResponseWriter, r *http.Request) {
	var req CreateQueueRequest
	if !h.bind(w, r, &req) {
		return
	}

	queue, err := h.queues.CreateQueue(r.Context(), req.Name, req.RetentionPeriod)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, queueResponse{Queue: queue})
}

// HandleListQueues handles GET /queues, or a single lookup with ?slug=
func (h *Handler) HandleListQueues(w http.ResponseWriter, r *http.Request) {
	if slug := r.URL.Query().Get("slug"); slug != "" {
		queue, err := h.queues.FindQueueBySlug(r.Context(), slug)
		if err != nil {
			h.respondError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, queueResponse{Queue: queue})
		return
	}

	queues, err := h.queues.FindAllQueues(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, queuesResponse{Queues: queues})
}

// HandleGetQueue handles GET /queues/{slug}
func (h *Handler) HandleGetQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.queues.FindQueueBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, queueResponse{Queue: queue})
}

// HandleDeleteQueue handles DELETE /queues/{slug}
func (h *Handler) HandleDeleteQueue(w http.ResponseWriter, r *http.Request) {
	result, err := h.queues.DeleteQueue(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// HandleUpdateRetention handles PATCH /queues/{slug}/retention
func (h *Handler) HandleUpdateRetention(w http.ResponseWriter, r *http.Request) {
	var req UpdateRetentionRequest
	if !h.bind(w, r, &req) {
		return
	}

	queue, err := h.queues.UpdateQueueRetentionPolicy(r.Context(), chi.URLParam(r, "slug"), req.RetentionPeriod)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, queueResponse{Queue: queue})
}

// HandlePurgeQueue handles POST /queues/{slug}/purge
func (h *Handler) HandlePurgeQueue(w http.ResponseWriter, r *http.Request) {
	result, err := h.queues.PurgeQueue(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, purgeResponse{Success: true, PurgeResult: result})
}

// HandlePurgeAllQueues handles POST /queues/purge-all
func (h *Handler) HandlePurgeAllQueues(w http.ResponseWriter, r *http.Request) {
	result, err := h.queues.PurgeAndDeleteAllQueues(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// HandleQueueStats handles GET /queues/{slug}/stats
func (h *Handler) HandleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queues.QueueStats(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

// HandleSendMessage handles POST /queues/{slug}/messages
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !h.bind(w, r, &req) {
		return
	}

	msg, err := h.queues.SendMessage(r.Context(), chi.URLParam(r, "slug"), req.Message)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, messageResponse{Message: msg})
}

// HandlePollMessage handles GET /queues/{slug}/messages.
//
// With ?claim=true the message is claimed atomically and hidden for
// ?visibilityTimeout= seconds (default from config). An empty queue is
// {"message": null} with status 200.
func (h *Handler) HandlePollMessage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	query := r.URL.Query()

	claim := false
	if raw := query.Get("claim"); raw != "" {
		var err error
		if claim, err = strconv.ParseBool(raw); err != nil {
			h.respondError(w, cargoqueue.NewError(cargoqueue.ErrCodeValidation, "Claim must be true or false"))
			return
		}
	}
	if !claim {
		msg, err := h.queues.PollMessage(r.Context(), slug)
		if err != nil {
			h.respondError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, messageResponse{Message: msg})
		return
	}

	visibility := h.claimVisibility
	if raw := query.Get("visibilityTimeout"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			h.respondError(w, cargoqueue.NewError(cargoqueue.ErrCodeValidation,
				"Visibility timeout must be a positive number of seconds"))
			return
		}
		if secs > MaxVisibilityTimeout {
			h.respondError(w, cargoqueue.NewError(cargoqueue.ErrCodeValidation,
				fmt.Sprintf("Visibility timeout must not exceed %d seconds", MaxVisibilityTimeout)))
			return
		}
		visibility = time.Duration(secs) * time.Second
	}

	msg, err := h.queues.ClaimMessage(r.Context(), slug, visibility)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// HandleAcknowledgeMessage handles DELETE /queues/{slug}/messages?messageId=
//
// The message is resolved by id alone; the slug in the path is not checked.
func (h *Handler) HandleAcknowledgeMessage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("messageId")
	if raw == "" {
		h.respondError(w, cargoqueue.NewError(cargoqueue.ErrCodeValidation, "Message ID is required"))
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Not an id any message could have.
		h.respondError(w, cargoqueue.ErrMessageNotFound)
		return
	}

	if _, err := h.queues.AcknowledgeMessage(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// HandleCreateTopic handles POST /topics
func (h *Handler) HandleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req CreateTopicRequest
	if !h.bind(w, r, &req) {
		return
	}

	topic, err := h.topics.CreateTopic(r.Context(), req.Name, req.TargetQueueIDs)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, topic)
}

// HandleListTopics handles GET /topics
func (h *Handler) HandleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.ListTopics(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, topics)
}

// HandleGetTopic handles GET /topics/{name}
func (h *Handler) HandleGetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := h.topics.GetTopic(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, topic)
}

// HandleDeleteTopic handles DELETE /topics/{name}
func (h *Handler) HandleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.topics.DeleteTopic(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// HandlePublish handles POST /topics/{name}
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !h.bind(w, r, &req) {
		return
	}

	result, err := h.topics.PublishMessage(r.Context(), chi.URLParam(r, "name"), req.Message)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, publishResponse{Success: true, PublishResult: result})
}

// HandleGetTopicQueues handles GET /topics/{name}/queues
func (h *Handler) HandleGetTopicQueues(w http.ResponseWriter, r *http.Request) {
	ids, err := h.topics.GetTopicTargetQueues(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, ids)
}

// HandleAddTopicQueue handles POST /topics/{name}/queues
func (h *Handler) HandleAddTopicQueue(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bindTargetQueue(w, r)
	if !ok {
		return
	}

	topic, err := h.topics.AddTargetQueue(r.Context(), chi.URLParam(r, "name"), req.QueueID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, topic)
}

// HandleRemoveTopicQueue handles DELETE /topics/{name}/queues
func (h *Handler) HandleRemoveTopicQueue(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bindTargetQueue(w, r)
	if !ok {
		return
	}

	topic, err := h.topics.RemoveTargetQueue(r.Context(), chi.URLParam(r, "name"), req.QueueID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, topic)
}

// HandleHealth handles GET /health. ping may be nil.
func (h *Handler) HandleHealth(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				h.logger.Errorf("Health check failed: %v", err)
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}

		h.respondJSON(w, code, map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"version":   Version,
		})
	}
}

// bindTargetQueue reads queueId from the query string, falling back to the JSON body.
func (h *Handler) bindTargetQueue(w http.ResponseWriter, r *http.Request) (TargetQueueRequest, bool) {
	var req TargetQueueRequest
	if raw := r.URL.Query().Get("queueId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.respondError(w, cargoqueue.NewError(cargoqueue.ErrCodeValidation, "Queue ID must be an integer"))
			return req, false
		}
		req.QueueID = id
		ok := h.check(w, req)
		return req, ok
	}
	ok := h.bind(w, r, &req)
	return req, ok
}

// bind decodes the JSON body into req and validates it. An empty body decodes
// as the zero value. Reports false after writing an error response.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeValidation, "Invalid JSON", err))
		return false
	}
	if v, ok := req.(validation.Validatable); ok {
		return h.check(w, v)
	}
	return true
}

func (h *Handler) check(w http.ResponseWriter, v validation.Validatable) bool {
	if err := v.Validate(); err != nil {
		h.respondError(w, cargoqueue.NewValidationError(err))
		return false
	}
	return true
}

// respondError maps the error code to a status. Internal and storage failures are
// logged and reported without detail.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch cargoqueue.CodeOf(err) {
	case cargoqueue.ErrCodeValidation, cargoqueue.ErrCodeConflict:
		h.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: cargoqueue.MessageOf(err)})
	case cargoqueue.ErrCodeNotFound:
		h.respondJSON(w, http.StatusNotFound, ErrorResponse{Error: cargoqueue.MessageOf(err)})
	default:
		h.logger.Errorf("Request failed: %v", err)
		h.respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
