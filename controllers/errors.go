package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/trashunter/repository"
	"github.com/yeremiapane/trashunter/services"
	"github.com/yeremiapane/trashunter/utils"
)

var errInternal = errors.New("internal server error")

// respondServiceError maps workflow errors to status codes. Anything not
// recognised is logged and hidden behind a generic 500.
func respondServiceError(c *gin.Context, err error) {
	var tooFar *services.TooFarError

	switch {
	case errors.Is(err, services.ErrMarkerNotFound), errors.Is(err, repository.ErrHunterNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrAlreadyCleaned),
		errors.Is(err, services.ErrAIRejected),
		errors.As(err, &tooFar):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondError(c, http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrEmailTaken):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		requestID, _ := c.Get("requestID")
		utils.ErrorLogger.WithField("request_id", requestID).WithError(err).Error("request failed")
		utils.RespondError(c, http.StatusInternalServerError, errInternal)
	}
}
