package handler

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CageChen/ctxhub/internal/aggregate"
	"github.com/CageChen/ctxhub/internal/config"
	mfs "github.com/CageChen/ctxhub/internal/fs"
)

// TreeNode is a file or directory in the candidate tree of a folder.
// Children appear in the order a snapshot would visit them.
type TreeNode struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Path        string      `json:"path,omitempty"`
	Alias       string      `json:"alias,omitempty"`
	Children    []*TreeNode `json:"children,omitempty"`
	ModTime     *time.Time  `json:"modTime,omitempty"`
	Size        int64       `json:"size,omitempty"`
	Error       string      `json:"error,omitempty"`
	IsRepoGroup bool        `json:"isRepoGroup,omitempty"`
}

// TreeHandler previews which files a snapshot would consider.
type TreeHandler struct {
	folders *FolderHandler
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(folders *FolderHandler) *TreeHandler {
	return &TreeHandler{folders: folders}
}

// GetTree returns the candidate trees of all configured folders
func (h *TreeHandler) GetTree(c *gin.Context) {
	folders := h.folders.Folders()
	var rawRoots []*TreeNode
	for _, folder := range folders {
		tree, err := buildTree(c, folder)
		if err != nil {
			continue
		}
		rawRoots = append(rawRoots, tree)
	}

	c.JSON(http.StatusOK, gin.H{
		"type":     "root",
		"children": groupByRepo(folders, rawRoots),
	})
}

// GetFolderTree returns the candidate tree of one folder
func (h *TreeHandler) GetFolderTree(c *gin.Context) {
	folder, ok := h.folders.Lookup(c.Param("alias"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown folder: " + c.Param("alias")})
		return
	}
	tree, err := buildTree(c, folder)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tree)
}

// groupByRepo groups roots that are different git refs of the same repository
// under a single parent named after the repository directory. roots must be
// aliases of folders.
func groupByRepo(folders []config.Folder, roots []*TreeNode) []*TreeNode {
	byAlias := make(map[string]config.Folder, len(folders))
	for _, f := range folders {
		byAlias[f.Alias] = f
	}

	repoMap := make(map[string][]*TreeNode)
	var order []string // first-seen order of repo paths
	var standalone []*TreeNode

	for _, node := range roots {
		folder := byAlias[node.Alias]
		if folder.GitRef == "" {
			standalone = append(standalone, node)
			continue
		}
		if _, seen := repoMap[folder.Path]; !seen {
			order = append(order, folder.Path)
		}
		repoMap[folder.Path] = append(repoMap[folder.Path], node)
	}

	var result []*TreeNode
	for _, repoPath := range order {
		nodes := repoMap[repoPath]
		if len(nodes) == 1 {
			result = append(result, nodes[0])
			continue
		}
		result = append(result, &TreeNode{
			Name:        filepath.Base(repoPath),
			Type:        "directory",
			IsRepoGroup: true,
			Children:    nodes,
		})
	}
	return append(result, standalone...)
}

// buildTree nests the files produced by aggregate.Walk under their directories.
// Directories without candidate files do not appear.
func buildTree(c *gin.Context, folder config.Folder) (*TreeNode, error) {
	fsys := fsForFolder(folder)
	info, err := fsys.Stat("")
	if err != nil {
		return nil, err
	}
	if !info.IsDir {
		return nil, aggregate.ErrRootNotDir
	}

	root := &TreeNode{
		Name:  folder.Alias,
		Type:  "directory",
		Alias: folder.Alias,
	}
	dirs := map[string]*TreeNode{"": root}

	var dirFor func(p string) *TreeNode
	dirFor = func(p string) *TreeNode {
		if n, ok := dirs[p]; ok {
			return n
		}
		parent := dirFor(parentDir(p))
		n := &TreeNode{Name: path.Base(p), Type: "directory", Path: folder.Alias + "/" + p}
		parent.Children = append(parent.Children, n)
		dirs[p] = n
		return n
	}

	for v := range aggregate.Walk(c.Request.Context(), fsys) {
		if v.Path == "" {
			return nil, v.Err
		}
		node := &TreeNode{
			Name: path.Base(v.Path),
			Type: "file",
			Path: folder.Alias + "/" + v.Path,
		}
		if v.Err != nil {
			node.Type = "unreadable"
			node.Error = v.Err.Error()
		} else {
			fileInfo(fsys, v.Path, node)
		}
		parent := dirFor(parentDir(v.Path))
		parent.Children = append(parent.Children, node)
	}
	return root, nil
}

func fileInfo(fsys mfs.FileSystem, p string, node *TreeNode) {
	info, err := fsys.Stat(p)
	if err != nil {
		node.Error = err.Error()
		return
	}
	modTime := info.ModTime
	node.ModTime = &modTime
	node.Size = info.Size
}

func parentDir(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}
