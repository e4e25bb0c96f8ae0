package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/farm-to-table/middlewares"
	"github.com/yeremiapane/farm-to-table/services"
	"github.com/yeremiapane/farm-to-table/utils"
)

// respondServiceError maps a service error kind to a status code. Internal
// errors are logged and answered with a generic message.
func respondServiceError(c *gin.Context, err error) {
	switch services.KindOf(err) {
	case services.ErrInvalidArgument:
		utils.RespondError(c, http.StatusBadRequest, err)
	case services.ErrNotFound:
		utils.RespondError(c, http.StatusNotFound, err)
	case services.ErrInsufficientStock, services.ErrInvalidTransition:
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.ErrorLogger.WithField("request_id", c.GetString(middlewares.ContextRequestID)).
			Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
	}
}

func principalFrom(c *gin.Context) (services.Principal, bool) {
	userID, role, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Not Authorized. Login Again"))
		return services.Principal{}, false
	}
	return services.Principal{UserID: userID, Role: role}, true
}

// parseID reads a positive numeric id.
func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
