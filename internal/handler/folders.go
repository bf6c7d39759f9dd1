package handler

import (
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/CageChen/ctxhub/internal/config"
)

// FolderHandler manages the configured snapshot folders.
type FolderHandler struct {
	cfg *config.Config
	mu  sync.RWMutex
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(cfg *config.Config) *FolderHandler {
	return &FolderHandler{cfg: cfg}
}

// Lookup returns the folder with the given alias.
func (h *FolderHandler) Lookup(alias string) (config.Folder, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.FolderByAlias(alias)
}

// Folders returns a copy of the configured folders.
func (h *FolderHandler) Folders() []config.Folder {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]config.Folder{}, h.cfg.Folders...)
}

// GetFolders returns the list of configured folders
func (h *FolderHandler) GetFolders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"folders": h.Folders(),
	})
}

// AddFolderRequest represents a request to add a folder
type AddFolderRequest struct {
	Path   string `json:"path" binding:"required"`
	Alias  string `json:"alias"`
	GitRef string `json:"git_ref"`
}

// AddFolder adds a new folder to the configuration
func (h *FolderHandler) AddFolder(c *gin.Context) {
	var req AddFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "path is required",
		})
		return
	}

	// The path must be a directory on disk even for git_ref folders
	info, err := os.Stat(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "path does not exist: " + req.Path,
		})
		return
	}
	if !info.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "path is not a directory",
		})
		return
	}

	if req.GitRef != "" {
		fs := fsForFolder(config.Folder{Path: req.Path, GitRef: req.GitRef})
		if _, err := fs.Stat(""); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "git ref not readable: " + err.Error(),
			})
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.cfg.AddFolder(req.Path, req.Alias, req.GitRef); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to save config: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "folder added",
		"folders": h.cfg.Folders,
	})
}

// RemoveFolderRequest represents a request to remove a folder (by index)
type RemoveFolderRequest struct {
	Index int `json:"index"`
}

// RemoveFolder removes a folder from the configuration by index
func (h *FolderHandler) RemoveFolder(c *gin.Context) {
	var req RemoveFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "index is required",
		})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if req.Index < 0 || req.Index >= len(h.cfg.Folders) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid folder index",
		})
		return
	}

	h.cfg.RemoveFolderByIndex(req.Index)

	if err := h.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to save config: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "folder removed",
		"folders": h.cfg.Folders,
	})
}
