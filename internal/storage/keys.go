package storage

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxKeyLength = 200

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// UserAssetPrefix is the folder holding one user's uploaded images.
func UserAssetPrefix(userID uint) string {
	return fmt.Sprintf("user-assets/%d/", userID)
}

// NewUserAssetKey returns a fresh key for an image with extension ext (".png").
func NewUserAssetKey(userID uint, ext string) string {
	return UserAssetPrefix(userID) + uuid.NewString() + strings.ToLower(ext)
}

// IsUserAssetKey 校验对象键属于该用户的上传目录且是受支持的图片。
func IsUserAssetKey(userID uint, key string) bool {
	if key == "" || len(key) > maxKeyLength || !utf8.ValidString(key) {
		return false
	}
	if !strings.HasPrefix(key, UserAssetPrefix(userID)) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	return IsImageName(key)
}

// IsImageName reports whether name ends in a supported image extension.
func IsImageName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ExportPrefix holds every PDF exported for one resume.
func ExportPrefix(userID uint, resumeID string) string {
	return fmt.Sprintf("exports/%d/%s/", userID, resumeID)
}

// NewExportKey returns the key for a new PDF export of a resume.
func NewExportKey(userID uint, resumeID string) string {
	return ExportPrefix(userID, resumeID) + uuid.NewString() + ".pdf"
}
