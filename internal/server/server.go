package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bark-labs/pushover-cli/internal/config"
	"github.com/bark-labs/pushover-cli/internal/model"
	"github.com/bark-labs/pushover-cli/internal/pushover"
	"github.com/bark-labs/pushover-cli/internal/service"
	"github.com/bark-labs/pushover-cli/internal/storage"
)

// Server wires the relay's HTTP handlers.
type Server struct {
	app       *fiber.App
	notifySvc *service.NotifyService
	logSvc    *service.DeliveryLogService
	authSvc   *service.AuthService
	cfg       *config.Config
	logger    *zap.Logger
}

// New builds a server instance.
func New(cfg *config.Config, notifySvc *service.NotifyService, logSvc *service.DeliveryLogService, authSvc *service.AuthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		IdleTimeout:           cfg.HTTP.ReadTimeout,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		AppName:               "pushover-relay",
		DisableStartupMessage: true,
	})
	s := &Server{
		app:       app,
		notifySvc: notifySvc,
		logSvc:    logSvc,
		authSvc:   authSvc,
		cfg:       cfg,
		logger:    logger.Named("server"),
	}
	s.registerRoutes()
	return s
}

// Start listens and serves HTTP traffic.
func (s *Server) Start() error {
	s.logger.Info("relay listening", zap.String("addr", s.cfg.HTTP.Addr))
	return s.app.Listen(s.cfg.HTTP.Addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealth)

	s.app.Post("/auth/login", s.handleLogin)
	s.app.Get("/auth/profile", s.handleProfile)

	s.app.Post("/notify", s.requireAuth, s.handleNotify)
	s.app.Get("/sounds", s.requireAuth, s.handleSounds)

	logGroup := s.app.Group("/api/delivery/log", s.requireAuth)
	logGroup.Get("/list", s.handleLogList)
	logGroup.Get("/count/status", s.handleLogCountStatus)
	logGroup.Get("/count/date", s.handleLogCountDate)
	logGroup.Get("/count/device", s.handleLogCountDevice)
	logGroup.Get("/:id", s.handleLogGet)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"history": s.cfg.Storage.Path != "",
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request"))
	}
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("login not required", fiber.Map{
			"token":    "",
			"enabled":  false,
			"username": "guest",
		}))
	}
	token, err := s.authSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("login succeeded", fiber.Map{
		"token":    token,
		"enabled":  true,
		"username": s.authSvc.Username(),
	}))
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.JSON(model.Success("ok", fiber.Map{
			"enabled":  false,
			"username": "guest",
		}))
	}
	claims, err := s.authenticate(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error(err.Error()))
	}
	return c.JSON(model.Success("ok", fiber.Map{
		"enabled":  true,
		"username": claims.Username,
	}))
}

func (s *Server) handleNotify(c *fiber.Ctx) error {
	var req model.NotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(model.Error("malformed request"))
	}
	if req.Priority < model.PriorityLow || req.Priority > model.PriorityHigh {
		return c.Status(http.StatusBadRequest).JSON(model.Error("priority must be -1, 0 or 1"))
	}
	result, err := s.notifySvc.Send(c.UserContext(), req)
	if err != nil {
		return s.failDelivery(c, err, result)
	}
	return c.JSON(model.Success("notification sent", result))
}

func (s *Server) failDelivery(c *fiber.Ctx, err error, result model.DeliveryResult) error {
	switch {
	case errors.Is(err, pushover.ErrRateLimited):
		return c.Status(http.StatusTooManyRequests).JSON(model.ErrorWithCode(model.RateLimitedCode, err.Error(), result))
	case errors.Is(err, pushover.ErrMessageRequired):
		return c.Status(http.StatusBadRequest).JSON(model.ErrorWithCode(model.ErrorCode, err.Error(), result))
	case errors.Is(err, pushover.ErrRejected):
		return c.Status(http.StatusUnprocessableEntity).JSON(model.ErrorWithCode(model.ErrorCode, err.Error(), result))
	case errors.Is(err, service.ErrClientNotConfigured):
		return c.Status(http.StatusServiceUnavailable).JSON(model.Error(err.Error()))
	default:
		return c.Status(http.StatusBadGateway).JSON(model.ErrorWithCode(model.ErrorCode, err.Error(), result))
	}
}

func (s *Server) handleSounds(c *fiber.Ctx) error {
	sounds, err := s.notifySvc.Sounds(c.UserContext())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, pushover.ErrAppTokenRequired) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(model.ErrorWithCode(model.ErrorCode, err.Error(), pushover.Diagnostics(err)))
	}
	return c.JSON(model.Success("ok", sounds))
}

func (s *Server) handleLogList(c *fiber.Ctx) error {
	page, err := s.logSvc.Query(c.UserContext(), parseLogFilter(c))
	if err != nil {
		return s.failHistory(c, err)
	}
	return c.JSON(model.Success("ok", page))
}

func (s *Server) handleLogCountStatus(c *fiber.Ctx) error {
	begin, end := parseTimeRange(c)
	data, err := s.logSvc.CountByStatus(c.UserContext(), begin, end)
	if err != nil {
		return s.failHistory(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

func (s *Server) handleLogCountDate(c *fiber.Ctx) error {
	begin, end := parseTimeRange(c)
	data, err := s.logSvc.CountByDate(c.UserContext(), c.Query("dateType", "day"), begin, end)
	if err != nil {
		return s.failHistory(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

func (s *Server) handleLogCountDevice(c *fiber.Ctx) error {
	begin, end := parseTimeRange(c)
	data, err := s.logSvc.CountByDevice(c.UserContext(), begin, end)
	if err != nil {
		return s.failHistory(c, err)
	}
	return c.JSON(model.Success("ok", data))
}

func (s *Server) handleLogGet(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(http.StatusBadRequest).JSON(model.Error("id must be a positive integer"))
	}
	entry, err := s.logSvc.Get(c.UserContext(), id)
	if err != nil {
		return s.failHistory(c, err)
	}
	return c.JSON(model.Success("ok", entry))
}

func (s *Server) failHistory(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrHistoryDisabled) || errors.Is(err, storage.ErrNotFound) {
		return c.Status(http.StatusNotFound).JSON(model.Error(err.Error()))
	}
	s.logger.Error("delivery history query failed", zap.Error(err))
	return c.Status(http.StatusInternalServerError).JSON(model.Error(err.Error()))
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	if !s.authSvc.Enabled() {
		return c.Next()
	}
	claims, err := s.authenticate(c)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(model.Error(err.Error()))
	}
	c.Locals("username", claims.Username)
	return c.Next()
}

func (s *Server) authenticate(c *fiber.Ctx) (*service.Claims, error) {
	token := extractBearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return nil, errors.New("not logged in")
	}
	claims, err := s.authSvc.Validate(token)
	if err != nil {
		return nil, errors.New("session expired")
	}
	return claims, nil
}

func parseLogFilter(c *fiber.Ctx) model.DeliveryLogFilter {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "10"))
	begin, end := parseTimeRange(c)
	return model.DeliveryLogFilter{
		Device:    c.Query("device"),
		Status:    c.Query("status"),
		BeginTime: begin,
		EndTime:   end,
		Page:      page,
		PageSize:  pageSize,
	}
}

func parseTimeRange(c *fiber.Ctx) (*time.Time, *time.Time) {
	return parseTime(c.Query("beginTime")), parseTime(c.Query("endTime"))
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
