package handlers

import (
	"net/http"

	apperrors "datachat/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondWithError logs the technical error and returns a user-friendly message
func respondWithError(c *gin.Context, statusCode int, technicalError error, userMessage string, logger *zap.Logger, fields ...zap.Field) {
	// Log technical error with context
	if logger != nil {
		fields = append(fields, zap.Error(technicalError))
		logger.Error("Request failed", fields...)
	}

	// Return user-friendly message
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondWithClientError returns a client error (no logging needed for validation errors)
func respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// statusFor maps the error taxonomy onto HTTP statuses. Transport and
// response failures are transient notices (bad gateway), an in-flight
// rejection is a conflict, everything else is the caller's fault.
func statusFor(err error) int {
	switch {
	case apperrors.IsRequestInFlight(err):
		return http.StatusConflict
	case apperrors.IsTransport(err), apperrors.IsBadResponse(err):
		return http.StatusBadGateway
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
