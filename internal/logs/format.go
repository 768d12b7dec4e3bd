package logs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"univdl/internal/logging"
)

// detailKeys are appended after the message when present.
var detailKeys = []string{"reason", "error", logging.FieldErrorHint, "command"}

// FormatRecord renders one JSON job-log record as "15:04:05 LEVEL msg".
// Lines that are not JSON records are returned unchanged.
func FormatRecord(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return line
	}
	msg, ok := record[logging.KeyMessage].(string)
	if !ok {
		return line
	}

	stamp := ""
	if ts, ok := record[logging.KeyTime].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			stamp = parsed.Local().Format(time.TimeOnly)
		}
	}
	level, _ := record[logging.KeyLevel].(string)

	var b strings.Builder
	if stamp != "" {
		b.WriteString(stamp)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", strings.ToUpper(level), msg)
	for _, key := range detailKeys {
		if value, ok := record[key]; ok && value != "" {
			fmt.Fprintf(&b, " %s=%v", key, value)
		}
	}
	return b.String()
}
