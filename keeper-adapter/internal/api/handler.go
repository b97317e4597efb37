package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/internal/keeper"
)

// SecretService defines the operations used by the handler.
type SecretService interface {
	GetSecret(ctx context.Context) (*keeper.Result, error)
	QuotaState() (count, limit, remaining int64)
}

// KeeperHandler serves the quota-gated secret endpoint.
type KeeperHandler struct {
	logger  *zap.Logger
	service SecretService
}

// NewKeeperHandler creates a new KeeperHandler.
func NewKeeperHandler(logger *zap.Logger, service SecretService) *KeeperHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeeperHandler{
		logger:  logger,
		service: service,
	}
}

// GetSecret handles GET /keeper/get-secret.
func (h *KeeperHandler) GetSecret(c *fiber.Ctx) error {
	res, err := h.service.GetSecret(c.UserContext())
	if err != nil {
		var quotaErr *keeper.QuotaExceededError
		switch {
		case errors.Is(err, keeper.ErrConfiguration):
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				OK:    false,
				Error: keeper.ErrConfiguration.Error(),
			})
		case errors.As(err, &quotaErr):
			return c.Status(fiber.StatusTooManyRequests).JSON(QuotaExceededResponse{
				OK:            false,
				Message:       QuotaExceededMessage,
				RealCallCount: quotaErr.Count,
				Limit:         quotaErr.Limit,
			})
		default:
			// detail stays in the logs
			h.logger.Debug("keeper.get_secret.backend_error", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				OK:    false,
				Error: keeper.ErrBackend.Error(),
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(GetSecretResponse{
		OK:            true,
		FromCache:     false,
		RealCallCount: res.RealCallCount,
		SecretSummary: SecretSummary{
			UID:   res.Summary.UID,
			Title: res.Summary.Title,
		},
	})
}
