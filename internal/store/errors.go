package store

import "codeberg.org/mutker/sensorbot/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("storage_invalid_config")
	ErrStorageInit   = errors.ErrorCode("storage_init_failed")
	ErrStorageWrite  = errors.ErrorCode("storage_write_failed")
	ErrStorageRead   = errors.ErrorCode("storage_read_failed")
	ErrStorageClose  = errors.ErrorCode("storage_close_failed")
	ErrRecordParse   = errors.ErrorCode("storage_parse_failed")
)
