package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// UploadRoot is the fixed top-level directory name; it is part of the public
// URL shape and must not change between deployments.
const UploadRoot = "uploads"

// punctuation stripped from original names before slugging, matching the
// upload contract of older clients.
const strippedPunctuation = "*+~.()'\"!:@"

type LocalConfig struct {
	// BaseDir is the directory containing the upload root.
	BaseDir string
	// BaseURL is the externally visible origin, e.g. http://127.0.0.1:8000.
	BaseURL string
}

// Local stores uploads on the local filesystem under
// <BaseDir>/uploads/<category>/<recordID>/<subpath>/.
type Local struct {
	baseDir string
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewLocal(cfg LocalConfig, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		baseDir: cfg.BaseDir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

var _ Storage = (*Local)(nil)

func (l *Local) Store(ctx context.Context, data []byte, originalName, category, recordID, subpath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if originalName == "" {
		return "", fmt.Errorf("empty file name")
	}

	dir := filepath.Join(l.baseDir, UploadRoot, category, recordID, subpath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	filename := l.securedFilename(originalName)
	// #nosec G304 -- path components are slugged/derived, not caller-controlled.
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o640); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	parts := []string{l.baseURL, UploadRoot, category, recordID}
	if subpath != "" {
		parts = append(parts, subpath)
	}
	parts = append(parts, filename)
	return strings.Join(parts, "/"), nil
}

// securedFilename slugs the base name (Arabic-aware transliteration), strips
// the punctuation set and appends a unix-millisecond stamp so concurrent
// writers never collide.
func (l *Local) securedFilename(originalName string) string {
	decoded := originalName
	if unescaped, err := url.QueryUnescape(originalName); err == nil {
		decoded = unescaped
	}

	ext := strings.ToLower(filepath.Ext(decoded))
	base := strings.TrimSuffix(filepath.Base(decoded), filepath.Ext(decoded))
	base = strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedPunctuation, r) {
			return -1
		}
		return r
	}, base)

	secured := slug.Make(base)
	if secured == "" {
		secured = "file"
	}
	return fmt.Sprintf("%s-%d%s", secured, l.now().UnixMilli(), ext)
}

// Delete refuses anything outside the upload root. That refusal is a security
// boundary, not an error: it logs and reports false.
func (l *Local) Delete(fileURL string) bool {
	localPath, ok := l.resolveLocalPath(fileURL)
	if !ok {
		l.logger.Warn("refusing delete outside upload root", zap.String("url", fileURL))
		return false
	}

	if _, err := os.Stat(localPath); err != nil {
		l.logger.Warn("stored file missing or unreadable", zap.String("path", localPath), zap.Error(err))
		return false
	}
	if err := os.Remove(localPath); err != nil {
		l.logger.Warn("delete stored file failed", zap.String("path", localPath), zap.Error(err))
		return false
	}
	return true
}

// DeleteFolder removes the record's subtree and the category directory when
// it holds no other records.
func (l *Local) DeleteFolder(category, recordID string) bool {
	if category == "" || recordID == "" {
		return false
	}

	categoryDir := filepath.Join(l.baseDir, UploadRoot, category)
	recordDir := filepath.Join(categoryDir, recordID)

	if _, err := os.Stat(recordDir); err != nil {
		l.logger.Warn("upload folder missing", zap.String("path", recordDir), zap.Error(err))
		return false
	}
	if err := os.RemoveAll(recordDir); err != nil {
		l.logger.Warn("remove upload folder failed", zap.String("path", recordDir), zap.Error(err))
		return false
	}

	remaining, err := os.ReadDir(categoryDir)
	if err == nil && len(remaining) == 0 {
		if err := os.Remove(categoryDir); err != nil {
			l.logger.Warn("remove empty category failed", zap.String("path", categoryDir), zap.Error(err))
		}
	}
	return true
}

// resolveLocalPath maps a stored URL back onto the filesystem and verifies
// the result stays inside the upload root.
func (l *Local) resolveLocalPath(fileURL string) (string, bool) {
	if !strings.HasPrefix(fileURL, l.baseURL+"/") {
		return "", false
	}

	rel := strings.TrimPrefix(fileURL, l.baseURL+"/")
	if decoded, err := url.PathUnescape(rel); err == nil {
		rel = decoded
	}

	root, err := filepath.Abs(filepath.Join(l.baseDir, UploadRoot))
	if err != nil {
		return "", false
	}
	resolved, err := filepath.Abs(filepath.Join(l.baseDir, filepath.FromSlash(rel)))
	if err != nil {
		return "", false
	}
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", false
	}
	return resolved, true
}
