package storage

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxSize 默认单文件大小上限 10MiB
const DefaultMaxSize int64 = 10 * 1024 * 1024

// PublicPrefix 对外访问路径前缀
const PublicPrefix = "/uploads"

var (
	// ErrFileTooLarge 文件超过大小上限
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrFileType 不允许的文件类型
	ErrFileType = errors.New("file type not allowed")
	// ErrContentMismatch 文件内容与扩展名不一致
	ErrContentMismatch = errors.New("file content does not match extension")
	// ErrEmptyFile 空文件
	ErrEmptyFile = errors.New("file is empty")
)

// allowedTypes 扩展名 → 允许的嗅探类型
// docx/xlsx 为 zip 容器,嗅探结果是 application/zip
var allowedTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".docx": {"application/zip"},
	".xlsx": {"application/zip"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
}

// StoredFile 已存储文件信息
type StoredFile struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	Path         string `json:"path"` // /uploads/<category>/<stored_name>
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
}

// FileStore 附件存储接口
type FileStore interface {
	Store(data []byte, suggestedName, category string) (*StoredFile, error)
	Delete(publicPath string) error
}

// LocalFileStore 本地磁盘存储
type LocalFileStore struct {
	root    string
	maxSize int64
}

// NewLocalFileStore 创建本地存储
func NewLocalFileStore(root string, maxSize int64) (*LocalFileStore, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalFileStore{root: root, maxSize: maxSize}, nil
}

// Root 存储根目录
func (s *LocalFileStore) Root() string {
	return s.root
}

// MaxSize 单文件大小上限
func (s *LocalFileStore) MaxSize() int64 {
	return s.maxSize
}

// Store 校验并写入文件,文件名使用 uuid 重新生成
func (s *LocalFileStore) Store(data []byte, suggestedName, category string) (*StoredFile, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), s.maxSize)
	}

	ext := strings.ToLower(filepath.Ext(suggestedName))
	allowed, ok := allowedTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (allowed: pdf, docx, xlsx, jpg, jpeg, png)", ErrFileType, ext)
	}
	contentType := http.DetectContentType(data)
	if !containsType(allowed, contentType) {
		return nil, fmt.Errorf("%w: %s is %s", ErrContentMismatch, ext, contentType)
	}

	category = sanitizeCategory(category)
	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	storedName := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(dir, storedName), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &StoredFile{
		OriginalName: filepath.Base(suggestedName),
		StoredName:   storedName,
		Path:         path.Join(PublicPrefix, category, storedName),
		Size:         int64(len(data)),
		ContentType:  contentType,
	}, nil
}

// Delete 根据对外路径删除文件,文件不存在时不报错
func (s *LocalFileStore) Delete(publicPath string) error {
	rel := strings.TrimPrefix(path.Clean(publicPath), PublicPrefix+"/")
	if rel == "" || strings.HasPrefix(rel, "..") || strings.HasPrefix(rel, "/") {
		return fmt.Errorf("invalid file path: %s", publicPath)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func containsType(allowed []string, contentType string) bool {
	// DetectContentType 可能带 "; charset=..." 参数
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, t := range allowed {
		if t == mediaType {
			return true
		}
	}
	return false
}

func sanitizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	var b strings.Builder
	for _, r := range category {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "claims"
	}
	return b.String()
}
