// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build unix

package logging

import (
	"io"
	"log/slog"
	"log/syslog"
)

// newSyslogHandler writes text records to the local syslog daemon under the
// authpriv facility. The priority comes from the writer, so the slog level is
// kept as an attribute in the message body.
func newSyslogHandler(opts *slog.HandlerOptions) (slog.Handler, io.Closer, error) {
	w, err := syslog.New(syslog.LOG_AUTHPRIV|syslog.LOG_INFO, "authramp")
	if err != nil {
		return nil, nil, err
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: opts.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// syslog stamps its own time
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}), w, nil
}
