package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// EventPublisher is the producer surface the handlers emit domain events on.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, Response{
		Status:  "error",
		Message: msg,
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// callerID returns the authenticated user's id set by the auth middleware.
func callerID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok {
		return 0, fmt.Errorf("no authenticated user in context")
	}
	return id, nil
}

func callerEmail(c echo.Context) (string, error) {
	email, ok := c.Get("email").(string)
	if !ok || email == "" {
		return "", fmt.Errorf("no authenticated user in context")
	}
	return email, nil
}
