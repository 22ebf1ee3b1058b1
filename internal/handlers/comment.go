package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vmarkelov/marketplace/internal/models"
	"github.com/vmarkelov/marketplace/internal/mykafka"
	"github.com/vmarkelov/marketplace/internal/repo"
)

type CommentHandler struct {
	Repo     *repo.GormRepo
	Producer EventPublisher
}

func (h *CommentHandler) AddComment(c echo.Context) error {
	ctx := c.Request().Context()

	email, err := callerEmail(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	productID := parseIntDefault(c.Param("id"), 0)
	if productID < 1 {
		return errorResponse(c, http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	if req.Text == "" {
		return errorResponse(c, http.StatusBadRequest, "text is required")
	}

	if _, err := h.Repo.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "product not found")
		}
		return errorResponse(c, http.StatusInternalServerError, "cannot add comment")
	}

	comment := models.Comment{
		ProductID: productID,
		UserEmail: email,
		Text:      req.Text,
	}
	if err := h.Repo.CreateComment(ctx, &comment); err != nil {
		return errorResponse(c, http.StatusInternalServerError, "cannot add comment")
	}

	if h.Producer == nil {
		return c.JSON(http.StatusCreated, comment)
	}

	event := map[string]interface{}{
		"type":       "comment_added",
		"productID":  productID,
		"user_email": comment.UserEmail,
		"text":       comment.Text,
		"created_at": comment.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(pubCtx, mykafka.TopicCommentEvents, fmt.Sprint(productID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}

	return c.JSON(http.StatusCreated, comment)
}
