package util

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

// ReadImageFile 读取本地图片的原始字节，最多 limit 字节（limit <= 0 不限制）
func ReadImageFile(path string, limit int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	return ReadLimited(file, limit)
}

// ReadLimited 读取全部内容，超过 limit 返回错误
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}
	return data, nil
}

// WriteFile 写入输出文件
func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// Trace 记录一个阶段的耗时，用法: defer util.Trace("resize")()
func Trace(name string, fields ...zap.Field) func() {
	start := time.Now()
	return func() {
		Logger.Debug(name, append(fields, zap.Duration("cost", time.Since(start)))...)
	}
}
