package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/streamgrab/models"
)

// channelsNote tells callers what the registry does and does not promise.
const channelsNote = "All listed channels are believed to be free/public. If one requires login, it will return an error."

// ListChannels returns a handler for GET /api/v1/channels.
func ListChannels(reg Channels) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.ChannelsResponse{
			Total:      reg.Len(),
			ByCategory: reg.Categories(),
			AllSlugs:   reg.Names(),
			Note:       channelsNote,
		})
	}
}
