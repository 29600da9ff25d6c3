package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

type HTTPHandler struct {
	links     ports.LinkService
	clicks    ports.ClickService
	analytics ports.AnalyticsService
	log       logrus.FieldLogger
}

func NewHTTPHandler(links ports.LinkService, clicks ports.ClickService, analytics ports.AnalyticsService, logger logrus.FieldLogger) *HTTPHandler {
	return &HTTPHandler{
		links:     links,
		clicks:    clicks,
		analytics: analytics,
		log:       logger.WithField("component", "http"),
	}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	TargetURL string `json:"target_url"`
	Slug      string `json:"slug,omitempty"`
}

type errorBody struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, domain.NewValidationError("body", "malformed JSON"))
		return
	}

	targetURL, err := domain.ValidateTargetURL(req.TargetURL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Slug != "" {
		if err := domain.ValidateSlug(req.Slug); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	link, err := h.links.Create(r.Context(), targetURL, req.Slug)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, link)
}

// List Links
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"data":  links,
		"total": len(links),
	})
}

// Get Link by id
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if link == nil {
		h.writeError(w, r, domain.ErrNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, link)
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.links.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Redirect to the target URL, recording a click unless no_stat is present.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	link, err := h.links.FindBySlug(r.Context(), slug)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if link == nil {
		h.writeError(w, r, domain.ErrNotFound)
		return
	}

	if !r.URL.Query().Has("no_stat") {
		if _, err := h.clicks.Record(r.Context(), link.ID, r.UserAgent()); err != nil {
			// The visitor still gets redirected.
			h.log.WithError(err).WithField("slug", slug).Error("Failed to record click")
		}
	}

	http.Redirect(w, r, link.TargetURL, http.StatusFound)
}

// Summary of clicks for a link
func (h *HTTPHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	summary, err := h.analytics.Summary(r.Context(), r.PathValue("id"), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// Daily click counts for a link
func (h *HTTPHandler) Daily(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	days, err := h.analytics.Daily(r.Context(), r.PathValue("id"), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": days})
}

// Browsers breakdown for a link
func (h *HTTPHandler) Browsers(w http.ResponseWriter, r *http.Request) {
	from, to := rangeParams(r)
	browsers, err := h.analytics.Browsers(r.Context(), r.PathValue("id"), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": browsers})
}

func rangeParams(r *http.Request) (string, string) {
	q := r.URL.Query()
	return q.Get("from"), q.Get("to")
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("Failed to write response")
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidRange:
		return http.StatusBadRequest
	case domain.KindSlugTaken:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	body := errorBody{Kind: kind, Message: err.Error()}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if kind == domain.KindInternal {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		// Store details stay in the log.
		body.Message = "internal error"
	}

	h.writeJSON(w, StatusFor(kind), map[string]errorBody{"error": body})
}
