package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const HeaderWebhookSignature = "x-webhook-signature"

// VerifySignature checks the inbound webhook signature: the header must
// equal the hex HMAC-SHA-256 of the exact raw request body under the shared
// secret, compared in constant time. A missing server-side secret is a
// configuration fault, not a client error.
func VerifySignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			log.Error().Msg("webhook secret is not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Webhook verification is not properly configured",
			})
			return
		}

		signature := c.GetHeader(HeaderWebhookSignature)
		if signature == "" {
			log.Warn().
				Str("path", c.Request.URL.Path).
				Msg("no webhook signature provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "No webhook signature provided",
			})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Error verifying webhook signature",
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(signature), []byte(expected)) {
			log.Warn().
				Str("path", c.Request.URL.Path).
				Msg("invalid webhook signature")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid webhook signature",
			})
			return
		}

		c.Next()
	}
}
