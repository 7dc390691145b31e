package api

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/database"
)

var emailPattern = regexp.MustCompile(`^\w+([\.+-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,})+$`)

// validEmail reports whether the normalized address looks deliverable.
func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}

	email := database.NormalizeEmail(req.Email)
	if !validEmail(email) {
		respondError(c, http.StatusBadRequest, "Please provide a valid email address", nil)
		return
	}

	subscriber, err := h.subscriberRepo.CreateSubscriber(c.Request.Context(), email)
	if errors.Is(err, database.ErrConflict) {
		respondError(c, http.StatusConflict, "Email already subscribed", nil)
		return
	}
	if err != nil {
		h.storeError(c, "create_subscriber", err)
		return
	}

	slog.Info("Subscriber added", "email", subscriber.Email)
	c.JSON(http.StatusCreated, subscriber)
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}

	email := database.NormalizeEmail(req.Email)
	if !validEmail(email) {
		respondError(c, http.StatusBadRequest, "Please provide a valid email address", nil)
		return
	}

	_, err := h.subscriberRepo.DeactivateSubscriber(c.Request.Context(), email)
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Subscriber not found", nil)
		return
	}
	if err != nil {
		h.storeError(c, "deactivate_subscriber", err)
		return
	}

	slog.Info("Subscriber unsubscribed", "email", email)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully unsubscribed"})
}

func (h *Handler) ListSubscribers(c *gin.Context) {
	subscribers, err := h.subscriberRepo.ListSubscribers(c.Request.Context())
	if err != nil {
		h.storeError(c, "list_subscribers", err)
		return
	}

	c.JSON(http.StatusOK, subscribers)
}

func (h *Handler) GetSubscriber(c *gin.Context) {
	subscriber, err := h.subscriberRepo.GetSubscriber(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, "get_subscriber", err)
		return
	}

	c.JSON(http.StatusOK, subscriber)
}

func (h *Handler) UpdateSubscriber(c *gin.Context) {
	var req subscriberUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Email != nil {
		email := database.NormalizeEmail(*req.Email)
		if !validEmail(email) {
			respondError(c, http.StatusBadRequest, "Please provide a valid email address", nil)
			return
		}
		req.Email = &email
	}

	subscriber, err := h.subscriberRepo.UpdateSubscriber(c.Request.Context(), c.Param("id"),
		database.SubscriberUpdate{Email: req.Email, Active: req.Active})
	if err != nil {
		h.storeError(c, "update_subscriber", err)
		return
	}

	c.JSON(http.StatusOK, subscriber)
}

func (h *Handler) DeleteSubscriber(c *gin.Context) {
	if err := h.subscriberRepo.DeleteSubscriber(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, "delete_subscriber", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscriber deleted"})
}
