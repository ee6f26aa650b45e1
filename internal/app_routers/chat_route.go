package approuters

import (
	"github.com/Felag1n/AudioBridge/internal/configuration"
	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/api/chat")
	chatRoute.Use(container.Verifier.Middleware())
	{
		chatRoute.GET("/messages/:otherId", container.ChatHandler.GetMessages)
		chatRoute.POST("/messages/:otherId", container.ChatHandler.SendMessage)
		chatRoute.POST("/messages/read/:otherId", container.ChatHandler.MarkRead)
		chatRoute.GET("/users", container.ChatHandler.GetUsers)
	}
}
