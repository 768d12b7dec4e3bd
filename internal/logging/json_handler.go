package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// Keys of the built-in fields in JSON records. Job logs are read back by
// `univdl history log`, which decodes records with these names.
const (
	KeyTime    = "ts"
	KeyLevel   = "level"
	KeyMessage = "msg"
	KeySource  = "src"
)

// jsonTimeFormat keeps milliseconds so engine lines stay ordered when they
// arrive in bursts.
const jsonTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: renameJSONAttr,
	})
}

func renameJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() == slog.KindTime {
			return slog.String(KeyTime, attr.Value.Time().UTC().Format(jsonTimeFormat))
		}
		attr.Key = KeyTime
	case slog.LevelKey:
		return slog.String(KeyLevel, strings.ToLower(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = KeyMessage
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			return slog.String(KeySource, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
		attr.Key = KeySource
	}
	return attr
}
