package storage_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mautops/claims-gin/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pdfData = append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 64)...)
	pngData = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	zipData = append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0}, 64)...)
	jpgData = append([]byte("\xff\xd8\xff\xe0"), bytes.Repeat([]byte{0}, 64)...)
)

func newStore(t *testing.T, maxSize int64) (*storage.LocalFileStore, string) {
	root := t.TempDir()
	store, err := storage.NewLocalFileStore(root, maxSize)
	require.NoError(t, err)
	return store, root
}

// TestLocalFileStore_Store 测试存储允许的文件类型
func TestLocalFileStore_Store(t *testing.T) {
	store, root := newStore(t, 0)
	assert.Equal(t, storage.DefaultMaxSize, store.MaxSize())

	tests := []struct {
		name string
		data []byte
	}{
		{"timesheet.pdf", pdfData},
		{"photo.PNG", pngData},
		{"report.docx", zipData},
		{"hours.xlsx", zipData},
		{"scan.jpeg", jpgData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := store.Store(tt.data, tt.name, "claims")
			require.NoError(t, err)
			assert.Equal(t, tt.name, stored.OriginalName)
			assert.True(t, strings.HasPrefix(stored.Path, "/uploads/claims/"))
			assert.Equal(t, strings.ToLower(filepath.Ext(tt.name)), filepath.Ext(stored.StoredName))
			assert.Equal(t, int64(len(tt.data)), stored.Size)

			onDisk, err := os.ReadFile(filepath.Join(root, "claims", stored.StoredName))
			require.NoError(t, err)
			assert.Equal(t, tt.data, onDisk)
		})
	}
}

// TestLocalFileStore_Store_Rejects 测试拒绝非法文件
func TestLocalFileStore_Store_Rejects(t *testing.T) {
	store, _ := newStore(t, 128)

	_, err := store.Store(nil, "empty.pdf", "claims")
	assert.ErrorIs(t, err, storage.ErrEmptyFile)

	_, err = store.Store(bytes.Repeat([]byte("%PDF-"), 100), "big.pdf", "claims")
	assert.ErrorIs(t, err, storage.ErrFileTooLarge)

	_, err = store.Store(pdfData, "script.exe", "claims")
	assert.ErrorIs(t, err, storage.ErrFileType)

	_, err = store.Store(pdfData, "noext", "claims")
	assert.ErrorIs(t, err, storage.ErrFileType)

	// 扩展名与内容不一致
	_, err = store.Store([]byte("<html><body>hi</body></html>"), "fake.pdf", "claims")
	assert.ErrorIs(t, err, storage.ErrContentMismatch)

	_, err = store.Store(pdfData, "fake.png", "claims")
	assert.ErrorIs(t, err, storage.ErrContentMismatch)
}

// TestLocalFileStore_Store_SanitizesNames 测试文件名和目录清理
func TestLocalFileStore_Store_SanitizesNames(t *testing.T) {
	store, root := newStore(t, 0)

	stored, err := store.Store(pdfData, "../../etc/passwd.pdf", "../Secret Dir")
	require.NoError(t, err)
	assert.Equal(t, "passwd.pdf", stored.OriginalName)
	assert.True(t, strings.HasPrefix(stored.Path, "/uploads/secretdir/"))
	_, err = os.Stat(filepath.Join(root, "secretdir", stored.StoredName))
	assert.NoError(t, err)

	stored, err = store.Store(pdfData, "a.pdf", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Path, "/uploads/claims/"))
}

// TestLocalFileStore_Delete 测试删除文件
func TestLocalFileStore_Delete(t *testing.T) {
	store, root := newStore(t, 0)
	stored, err := store.Store(pngData, "photo.png", "claims")
	require.NoError(t, err)

	require.NoError(t, store.Delete(stored.Path))
	_, err = os.Stat(filepath.Join(root, "claims", stored.StoredName))
	assert.True(t, os.IsNotExist(err))

	// 重复删除不报错
	assert.NoError(t, store.Delete(stored.Path))

	assert.Error(t, store.Delete("/uploads/../../etc/passwd"))
	assert.Error(t, store.Delete("/uploads"))
}

// TestNewLocalFileStore_RequiresRoot 测试缺少根目录
func TestNewLocalFileStore_RequiresRoot(t *testing.T) {
	_, err := storage.NewLocalFileStore("", 0)
	assert.Error(t, err)
}
