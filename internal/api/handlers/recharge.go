package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/api/middleware"
	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/modules"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
)

// RechargeRequest asks an operator for more credits on one bucket. The
// transcript rides along so the reviewer can see how the balance was spent.
type RechargeRequest struct {
	BalanceType string               `json:"balance_type"` // bucket name, or a module key
	Amount      int                  `json:"amount"`
	ChatHistory []models.ChatMessage `json:"chat_history,omitempty"`
}

// RechargeHandler forwards recharge requests to the profile system. Nothing
// changes locally; an operator acts on the request out-of-band.
type RechargeHandler struct {
	profile *profile.Client
	logger  *logrus.Logger
}

// NewRechargeHandler creates a new recharge handler
func NewRechargeHandler(profileClient *profile.Client, logger *logrus.Logger) *RechargeHandler {
	return &RechargeHandler{profile: profileClient, logger: logger}
}

// Create handles POST /api/v1/recharge-requests
func (h *RechargeHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetUserContext(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	var req RechargeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	bucket, err := resolveBucket(req.BalanceType)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	}

	err = h.profile.CreateRechargeRequest(c.Context(), user.UserID.String(), user.DisplayName, bucket, req.Amount, req.ChatHistory)
	if err != nil {
		h.logger.WithError(err).Error("failed to create recharge request")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Profile system unavailable"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Recharge request submitted"})
}

// resolveBucket accepts either a bucket name or a module key.
func resolveBucket(balanceType string) (profile.Bucket, error) {
	switch profile.Bucket(balanceType) {
	case profile.BucketIkigai, profile.BucketIdeation1, profile.BucketIdeation2,
		profile.BucketIdeation3, profile.BucketIdeation4:
		return profile.Bucket(balanceType), nil
	}

	module, err := modules.ByKey(balanceType)
	if err != nil {
		return "", err
	}
	return module.Bucket, nil
}
