package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/hookbill/hookbill/internal/billing/domain"
	gatewaydomain "github.com/hookbill/hookbill/internal/gateway/domain"
	"go.uber.org/zap"
)

// Error tokens reported back to the gateway. Processors log the response
// body verbatim, so the tokens stay short and grep-friendly.
const (
	tokenCouldNotValidate        = "COULD_NOT_VALIDATE"
	tokenInvalidHookData         = "INVALID_HOOK_DATA"
	tokenUnknownBillingAgreement = "UNKNOWN_BILLING_AGREEMENT"
	tokenInternalError           = "INTERNAL_ERROR"
)

// HandleGatewayWebhook ingests one gateway notification. Responses are plain
// text: recognized deliveries answer 200 with an outcome token so the
// gateway stops retrying, fatal conditions answer 500 with an error token so
// it retries later.
func (s *Server) HandleGatewayWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.metrics.RecordWebhookError(provider, tokenInvalidHookData)
		c.String(http.StatusInternalServerError, tokenInvalidHookData)
		return
	}

	outcome, err := s.billingSvc.HandleWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		token := errorToken(err)
		s.log.Error("webhook reconciliation failed",
			zap.String("provider", provider),
			zap.String("token", token),
			zap.Error(err))
		s.metrics.RecordWebhookError(provider, token)
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, token)
		return
	}

	s.metrics.RecordWebhookOutcome(provider, string(outcome))
	c.String(http.StatusOK, string(outcome))
}

func errorToken(err error) string {
	switch {
	case errors.Is(err, gatewaydomain.ErrNotAuthenticated),
		errors.Is(err, gatewaydomain.ErrProviderNotFound):
		return tokenCouldNotValidate
	case errors.Is(err, gatewaydomain.ErrInvalidHookData),
		errors.Is(err, gatewaydomain.ErrInvalidPayload):
		return tokenInvalidHookData
	case errors.Is(err, billingdomain.ErrUnknownBillingAgreement):
		return tokenUnknownBillingAgreement
	default:
		return tokenInternalError
	}
}
