package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vmarkelov/marketplace/internal/lifecycle"
	"github.com/vmarkelov/marketplace/internal/logging"
	"github.com/vmarkelov/marketplace/internal/models"
	"github.com/vmarkelov/marketplace/internal/mykafka"
	"github.com/vmarkelov/marketplace/internal/repo"
	"github.com/vmarkelov/marketplace/internal/util"
)

const recentCommentLimit = 10

type ProductHandler struct {
	Repo       *repo.GormRepo
	Producer   EventPublisher
	Activation *lifecycle.ActivationService
	Indexer    lifecycle.Indexer
}

func (h *ProductHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	userID, err := callerID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	email, err := callerEmail(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	var req struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return errorResponse(c, http.StatusBadRequest, "name is required")
	}
	if req.Price < 0 {
		return errorResponse(c, http.StatusBadRequest, "price cannot be negative")
	}

	prod := models.Product{
		Name:         req.Name,
		Price:        req.Price,
		CreatorID:    userID,
		CreatorEmail: email,
		IsActive:     true,
	}

	if err := h.Repo.CreateProduct(ctx, &prod); err != nil {
		l.Error("create_product_failed", "error", err)
		return errorResponse(c, http.StatusInternalServerError, "cannot create product")
	}

	if h.Indexer != nil {
		if err := h.Indexer.IndexProduct(ctx, prod); err != nil {
			l.Error("search index update failed", "product_id", prod.ID, "error", err)
		}
	}

	h.publish(c, fmt.Sprint(prod.ID), map[string]interface{}{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id := parseIntDefault(c.Param("id"), 0)
	if id < 1 {
		return errorResponse(c, http.StatusBadRequest, "invalid product id")
	}

	product, err := h.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "product not found")
		}
		l.Error("get_product_failed", "product_id", id, "error", err)
		return errorResponse(c, http.StatusInternalServerError, "cannot get product")
	}

	comments, err := h.Repo.GetRecentComments(ctx, id, recentCommentLimit)
	if err != nil {
		l.Error("get_comments_failed", "product_id", id, "error", err)
		return errorResponse(c, http.StatusInternalServerError, "cannot get product")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"product":  product,
		"comments": comments,
	})
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Repo.GetActiveProducts(ctx, offset, limit)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, "cannot list products")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// Activate handles the emailed reactivation link.
func (h *ProductHandler) Activate(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	err = h.Activation.Activate(c.Request().Context(), c.Param("token"), userID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"status": "activated"})
	case errors.Is(err, lifecycle.ErrAlreadyActive):
		return c.JSON(http.StatusOK, echo.Map{"status": "already_active"})
	case errors.Is(err, lifecycle.ErrBadToken), errors.Is(err, lifecycle.ErrInvalidLink):
		// One body for every rejected token, so the response never betrays
		// whether the decoded id names a real product.
		return errorResponse(c, http.StatusBadRequest, "invalid token")
	case errors.Is(err, lifecycle.ErrForbidden):
		return errorResponse(c, http.StatusForbidden, "forbidden")
	default:
		logging.FromContext(c.Request().Context()).Error("activate_failed", "error", err)
		return errorResponse(c, http.StatusInternalServerError, "activation failed")
	}
}
