// Package server provides HTTP handlers and server setup for the model gateway.
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"modelgate/internal/core"
	"modelgate/internal/gateway"
	"modelgate/internal/generation"
	"modelgate/internal/prefs"
	"modelgate/internal/structured"
)

// UpstreamKeyHeader carries a per-request upstream credential that overrides the
// process-wide key.
const UpstreamKeyHeader = "X-Upstream-API-Key"

// Handler holds the HTTP handlers
type Handler struct {
	svc   *gateway.Service
	store prefs.Store
}

// NewHandler creates a new handler backed by svc and the shared preference store.
func NewHandler(svc *gateway.Service, store prefs.Store) *Handler {
	return &Handler{
		svc:   svc,
		store: store,
	}
}

// SelectionRequest is the body of PUT /v1/models/selection.
type SelectionRequest struct {
	Model string `json:"model"`
}

// SelectionResponse reports the caller's model.
type SelectionResponse struct {
	Model       string `json:"model"`
	Unavailable bool   `json:"unavailable"`
}

// GenerateRequest is the body of POST /v1/generate and /v1/generate/structured.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	// Shape applies to the structured endpoint only: "array" or "object".
	Shape string `json:"shape,omitempty"`
}

// StructuredResponse is the reply of POST /v1/generate/structured.
type StructuredResponse struct {
	Model string `json:"model"`
	Data  any    `json:"data"`
}

func (h *Handler) session(c echo.Context) *gateway.Session {
	callerID := core.GetCallerID(c.Request().Context())
	return h.svc.Session(prefs.Scope(h.store, callerID))
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ModelStatus handles GET /v1/models/status
func (h *Handler) ModelStatus(c echo.Context) error {
	report, err := h.session(c).Status(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// GetSelection handles GET /v1/models/selection
func (h *Handler) GetSelection(c echo.Context) error {
	return h.writeSelection(c, h.session(c))
}

// PutSelection handles PUT /v1/models/selection
func (h *Handler) PutSelection(c echo.Context) error {
	var req SelectionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	sess := h.session(c)
	if err := sess.Select(c.Request().Context(), strings.TrimSpace(req.Model)); err != nil {
		return handleError(c, err)
	}
	return h.writeSelection(c, sess)
}

func (h *Handler) writeSelection(c echo.Context, sess *gateway.Session) error {
	ctx := c.Request().Context()
	model, err := sess.Selected(ctx)
	if err != nil {
		return handleError(c, err)
	}
	unavailable, err := sess.IsUnavailable(ctx, model)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, SelectionResponse{Model: model, Unavailable: unavailable})
}

// Generate handles POST /v1/generate
func (h *Handler) Generate(c echo.Context) error {
	req, err := bindGenerate(c)
	if err != nil {
		return handleError(c, err)
	}

	res, err := h.session(c).Generate(c.Request().Context(), req.Prompt, options(c, req))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GenerateStructured handles POST /v1/generate/structured
func (h *Handler) GenerateStructured(c echo.Context) error {
	req, err := bindGenerate(c)
	if err != nil {
		return handleError(c, err)
	}
	shape, err := structured.ParseShape(req.Shape)
	if err != nil {
		return handleError(c, core.NewInvalidRequestError(err.Error(), err))
	}

	data, model, err := gateway.GenerateInto(c.Request().Context(), h.session(c), req.Prompt, options(c, req), shape, structured.ForShape(shape))
	if err != nil {
		var gatewayErr *core.GatewayError
		if model != "" && errors.As(err, &gatewayErr) && gatewayErr.Model == "" {
			gatewayErr.Model = model
		}
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, StructuredResponse{Model: model, Data: data})
}

func bindGenerate(c echo.Context) (*GenerateRequest, error) {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return nil, core.NewInvalidRequestError("invalid request body: "+err.Error(), err)
	}
	return &req, nil
}

func options(c echo.Context, req *GenerateRequest) generation.Options {
	return generation.Options{
		Model:  strings.TrimSpace(req.Model),
		APIKey: c.Request().Header.Get(UpstreamKeyHeader),
	}
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
