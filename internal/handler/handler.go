// Package handler provides HTTP handlers for the ctxhub REST API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CageChen/ctxhub/internal/aggregate"
	"github.com/CageChen/ctxhub/internal/config"
	mfs "github.com/CageChen/ctxhub/internal/fs"
	"github.com/CageChen/ctxhub/internal/tokens"
)

// fsForFolder returns the appropriate FileSystem for a folder config.
func fsForFolder(folder config.Folder) mfs.FileSystem {
	if folder.GitRef != "" {
		return mfs.NewGitFS(folder.Path, folder.GitRef)
	}
	return mfs.NewLocalFS(folder.Path)
}

// NewRouter wires every handler into a gin engine. Aggregation events are
// broadcast on the returned WSHandler.
func NewRouter(cfg *config.Config, counter tokens.Counter) (*gin.Engine, *WSHandler) {
	wsHandler := NewWSHandler()
	folderHandler := NewFolderHandler(cfg)
	treeHandler := NewTreeHandler(folderHandler)
	snapshotHandler := NewSnapshotHandler(
		folderHandler,
		aggregate.New(cfg.Options(), wsHandler),
		counter,
		cfg.Timeout,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/ws", wsHandler.HandleWS)

		// Folder management APIs
		api.GET("/folders", folderHandler.GetFolders)
		api.POST("/folders", folderHandler.AddFolder)
		api.DELETE("/folders", folderHandler.RemoveFolder)

		api.GET("/tree", treeHandler.GetTree)
		api.GET("/tree/:alias", treeHandler.GetFolderTree)

		api.GET("/snapshot/:alias", snapshotHandler.GetSnapshot)
		api.GET("/snapshot/:alias/view", snapshotHandler.GetView)
		api.GET("/report/:alias", snapshotHandler.GetReport)
	}
	return r, wsHandler
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
