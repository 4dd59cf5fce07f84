package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondPage(c *gin.Context, data any, page any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "pagination": page})
}

func respondDeleted(c *gin.Context, id string) {
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
