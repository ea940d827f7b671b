// Package render turns finished summaries into files for people to read.
package render

import (
	"fmt"
	"strings"
	"time"
)

// Markdown wraps summary in a small document with a title heading and the
// time it was produced.
func Markdown(title, summary string, at time.Time) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Summary"
	}
	return fmt.Sprintf("# %s\n\n_%s_\n\n%s\n", title, at.Format("2006-01-02 15:04"), strings.TrimSpace(summary))
}
