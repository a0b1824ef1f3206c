package controllers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/retadi-server/tool"
)

const indexDocument = "index.html"

// StaticController serves the companion web app out of root. Directories
// resolve to index.html and are never listed.
type StaticController struct {
	root string
}

func NewStaticController(root string) *StaticController {
	return &StaticController{root: root}
}

func (ctrl *StaticController) HandleStatic(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Header("Allow", "GET, HEAD")
		c.String(http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	urlPath := c.Request.URL.Path
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}
	clean := path.Clean(urlPath)
	name := filepath.Join(ctrl.root, filepath.FromSlash(clean))

	info, err := os.Stat(name)
	if err != nil {
		ctrl.fail(c, clean, err)
		return
	}

	if info.IsDir() {
		if !strings.HasSuffix(urlPath, "/") {
			target := clean + "/"
			if q := c.Request.URL.RawQuery; q != "" {
				target += "?" + q
			}
			c.Redirect(http.StatusMovedPermanently, target)
			return
		}
		name = filepath.Join(name, indexDocument)
		info, err = os.Stat(name)
		if err != nil {
			ctrl.fail(c, clean, err)
			return
		}
		if info.IsDir() {
			c.String(http.StatusNotFound, "404 page not found")
			return
		}
	}

	file, err := os.Open(name)
	if err != nil {
		ctrl.fail(c, clean, err)
		return
	}
	defer file.Close()

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}

func (ctrl *StaticController) fail(c *gin.Context, urlPath string, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.String(http.StatusNotFound, "404 page not found")
	case errors.Is(err, fs.ErrPermission):
		tool.DefaultLogger.Warnf("Permission denied serving %s: %v", urlPath, err)
		c.String(http.StatusForbidden, "403 Forbidden")
	default:
		tool.DefaultLogger.Errorf("Failed to serve %s: %v", urlPath, err)
		c.String(http.StatusInternalServerError, "500 Internal Server Error")
	}
}
