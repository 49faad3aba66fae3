// Package validator checks decoded uploads against the configured limits.
package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
)

// Validator validates file uploads
type Validator struct {
	cfg        config.UploadConfig
	extensions map[string]bool
}

func NewFileValidator(cfg config.UploadConfig) *Validator {
	extensions := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}
	return &Validator{cfg: cfg, extensions: extensions}
}

// ValidateUpload checks count, per-file size, total size and extension.
// An empty extension list accepts every extension.
func (v *Validator) ValidateUpload(files []entity.FileData) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: files", entity.ErrMissingField)
	}

	if v.cfg.MaxFileCount > 0 && len(files) > v.cfg.MaxFileCount {
		return fmt.Errorf("%w: maximum %d files allowed, got %d", entity.ErrTooManyFiles, v.cfg.MaxFileCount, len(files))
	}

	var totalSize int64
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Filename))
		if len(v.extensions) > 0 && !v.extensions[ext] {
			return fmt.Errorf("%w: %q (allowed: %s)", entity.ErrInvalidExtension, ext, strings.Join(v.cfg.AllowedExtensions, ", "))
		}

		size := int64(len(f.Content))
		if v.cfg.MaxFileSize > 0 && size > v.cfg.MaxFileSize {
			return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, f.Filename, size, v.cfg.MaxFileSize)
		}

		totalSize += size
	}

	if v.cfg.MaxTotalSize > 0 && totalSize > v.cfg.MaxTotalSize {
		return fmt.Errorf("%w: total size is %d bytes (max %d)", entity.ErrFileTooLarge, totalSize, v.cfg.MaxTotalSize)
	}

	return nil
}

// SanitizeFilename reduces a client-supplied name to a safe base name. It
// returns "" when nothing usable is left.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filepath.Clean("/" + filename))
	replacer := strings.NewReplacer(
		"\x00", "",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	filename = replacer.Replace(filename)
	if filename == "/" || filename == "." || filename == ".." {
		return ""
	}
	return filename
}
