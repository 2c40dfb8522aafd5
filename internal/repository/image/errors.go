package image

import "errors"

var (
	ErrImageNotFound = errors.New("image not found")
	ErrFileNotFound  = errors.New("file not found")
	ErrNotPending    = errors.New("image is not in pending status")
	ErrNotProcessing = errors.New("image is not in processing status")
	ErrStorageError  = errors.New("storage error")
)
