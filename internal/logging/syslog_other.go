// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !unix

package logging

import (
	"errors"
	"io"
	"log/slog"
)

func newSyslogHandler(*slog.HandlerOptions) (slog.Handler, io.Closer, error) {
	return nil, nil, errors.New("syslog not supported on this platform")
}
