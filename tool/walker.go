package tool

import (
	"os"
	"path/filepath"
)

func GetRunPositionDir() string {
	exePath, err := os.Executable()
	if err != nil {
		return ""
	}
	exePath, err = filepath.EvalSymlinks(exePath)
	if err != nil {
		return ""
	}
	return filepath.Dir(exePath)
}

// ResolveAssetRoot makes a relative asset root absolute. The working
// directory wins; otherwise the directory next to the executable is used.
func ResolveAssetRoot(root string) string {
	if root == "" || filepath.IsAbs(root) {
		return root
	}
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		if abs, err := filepath.Abs(root); err == nil {
			return abs
		}
		return root
	}
	if dir := GetRunPositionDir(); dir != "" {
		candidate := filepath.Join(dir, root)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return root
}
