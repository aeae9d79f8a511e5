package api

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"time"

	"github.com/bobby-s-dev/weather-agent/internal/models"
	"github.com/bobby-s-dev/weather-agent/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var startTime = time.Now()

// QueryProcessor is the part of the agent the HTTP layer depends on.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, userText string) (*models.QueryResult, error)
	GetLastQueryTime() time.Time
	GetStats() map[string]interface{}
}

type Handler struct {
	agent  QueryProcessor
	logger *zap.Logger
}

func NewHandler(agent QueryProcessor, logger *zap.Logger) *Handler {
	return &Handler{
		agent:  agent,
		logger: logger,
	}
}

type queryRequest struct {
	Query string `json:"query" form:"query"`
}

type queryResponse struct {
	Query      string           `json:"query"`
	Answer     string           `json:"answer"`
	Kind       models.QueryKind `json:"kind"`
	Location   string           `json:"location,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

type resultPage struct {
	Query  string
	Result string
}

// GetIndex handles GET /
func (h *Handler) GetIndex(c *fiber.Ctx) error {
	return h.render(c, "index", nil)
}

// PostQuery handles POST / from the HTML form. Pipeline failures are shown
// to the user on the result page rather than as an HTTP error.
func (h *Handler) PostQuery(c *fiber.Ctx) error {
	userInput := c.FormValue("query")

	page := resultPage{Query: userInput}

	result, err := h.agent.ProcessQuery(c.UserContext(), userInput)
	if err != nil {
		h.logger.Warn("Query failed",
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		page.Result = "Error: " + err.Error()
	} else {
		page.Result = result.Answer
	}

	return h.render(c, "result", page)
}

// PostQueryJSON handles POST /api/v1/query
func (h *Handler) PostQueryJSON(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.agent.ProcessQuery(c.UserContext(), req.Query)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		h.logger.Error("Failed to process query",
			zap.String("request_id", requestID(c)),
			zap.Error(err))

		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(queryResponse{
		Query:      result.Query,
		Answer:     result.Answer,
		Kind:       result.Kind,
		Location:   result.Location,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "healthy",
		"timestamp":  time.Now(),
		"last_query": h.agent.GetLastQueryTime(),
		"uptime":     time.Since(startTime).String(),
		"stats":      h.agent.GetStats(),
	})
}

func (h *Handler) render(c *fiber.Ctx, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
