package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingInput      = errors.New("missing upload input")
	ErrStorageWrite      = errors.New("storage write failed")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrParse             = errors.New("file parse failed")
	ErrOCRService        = errors.New("ocr service failure")
	ErrAIService         = errors.New("ai service failure")
	ErrNotFound          = errors.New("file not found")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
