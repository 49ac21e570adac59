package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"terminal-terrace/foodgram/config"

	"github.com/google/uuid"
)

var (
	ErrInvalidDataURI  = errors.New("无效的 base64 图片")
	ErrUnsupportedType = errors.New("只支持图片文件")
)

// Storage 保存文件并返回可访问的地址
type Storage interface {
	Save(ctx context.Context, prefix, contentType string, r io.Reader) (string, error)
}

// New 根据配置选择存储驱动
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.Local.Root, cfg.Local.BaseURL), nil
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Driver)
	}
}

// SaveDataURI 保存 data:<mime>;base64,<payload> 格式的图片
func SaveDataURI(ctx context.Context, s Storage, prefix, dataURI string) (string, error) {
	contentType, payload, err := parseDataURI(dataURI)
	if err != nil {
		return "", err
	}
	return s.Save(ctx, prefix, contentType, strings.NewReader(payload))
}

// SaveFileHeader 保存 multipart 表单中的图片
func SaveFileHeader(ctx context.Context, s Storage, prefix string, fh *multipart.FileHeader) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(fh.Filename))
	}
	if !isImage(contentType) {
		return "", ErrUnsupportedType
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("读取上传文件失败: %w", err)
	}
	defer f.Close()

	return s.Save(ctx, prefix, contentType, f)
}

// parseDataURI 返回解码后的内容
func parseDataURI(dataURI string) (string, string, error) {
	meta, data, ok := strings.Cut(dataURI, ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return "", "", ErrInvalidDataURI
	}

	contentType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if !isImage(contentType) {
		return "", "", ErrUnsupportedType
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return contentType, string(raw), nil
}

func isImage(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "image/")
}

// objectKey 生成 prefix/yyyy/mm/<uuid><ext>
func objectKey(prefix, contentType string) string {
	return path.Join(prefix, time.Now().Format("2006/01"), uuid.New().String()+extension(contentType))
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	// 回退到子类型
	if _, sub, ok := strings.Cut(contentType, "/"); ok {
		return "." + sub
	}
	return ""
}
