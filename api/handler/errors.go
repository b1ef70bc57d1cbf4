package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/streamgrab/channels"
	"github.com/use-agent/streamgrab/models"
)

// statusForKind translates an extraction failure kind to an HTTP status.
func statusForKind(k models.ErrorKind) int {
	switch k {
	case models.ErrKindPremiumGated:
		return http.StatusForbidden // 403
	case models.ErrKindChannelNotFound:
		return http.StatusNotFound // 404
	case models.ErrKindServerBusy:
		return http.StatusServiceUnavailable // 503
	case models.ErrKindNavigationTimeout, models.ErrKindWatchdogTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusBadGateway // 502
	}
}

// resolveChannel reads the channel query parameter and resolves it. On
// failure it writes the 400/404 response and returns false.
func resolveChannel(c *gin.Context, reg Channels, name string) (models.Channel, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeInvalidInput,
				Message: "missing 'channel' query parameter",
			},
			Hint:              "Use ?channel=green-entertainment",
			AvailableChannels: reg.Names(),
		})
		return models.Channel{}, false
	}

	ch, err := reg.Resolve(name)
	if err != nil {
		if !errors.Is(err, channels.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Success: false,
				Error:   &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()},
			})
			return models.Channel{}, false
		}
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeUnknownChannel,
				Message: "unknown channel slug: '" + channels.Canonical(name) + "'",
			},
			Hint:              "Check /api/v1/channels for available slugs.",
			CloseMatches:      reg.CloseMatches(name),
			AvailableChannels: reg.Names(),
		})
		return models.Channel{}, false
	}
	return ch, true
}

// queryBool accepts "1", "true" and the other strconv.ParseBool spellings.
func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
