package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrFileType     = errors.New("file type not allowed")
)

// ReadUpload reads a multipart file into memory after checking its size and
// extension. Extensions are compared case-insensitively and include the dot.
func ReadUpload(fileHeader *multipart.FileHeader, maxBytes int64, extensions ...string) ([]byte, error) {
	if fileHeader.Size > maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, limit %d: %w", fileHeader.Filename, fileHeader.Size, maxBytes, ErrFileTooLarge)
	}
	if !hasExtension(fileHeader.Filename, extensions) {
		return nil, fmt.Errorf("%s: %w", fileHeader.Filename, ErrFileType)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Size in the header comes from the client; read one byte past the limit to be sure.
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", fileHeader.Filename, maxBytes, ErrFileTooLarge)
	}
	return data, nil
}

func hasExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
