//go:build !gocv
// +build !gocv

package model

import (
	"errors"
	"log/slog"
)

// LoadONNX возвращает ошибку, если сборка без тега gocv.
func LoadONNX(s Settings, logger *slog.Logger) (*Models, error) {
	_ = s
	_ = logger
	return nil, errors.New("gocv build tag is not enabled")
}
