package report

import (
	"fmt"
	"strings"
	"time"
)

// Render produces the report body: a title line naming the run, a
// separator rule of the same width, then one line per event in the
// order the events happened.
func Render(startedAt time.Time, lines []string) string {
	title := "snapkeeper run report " + startedAt.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("=", len(title)))
	b.WriteByte('\n')

	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

// Key returns the object key for a run report: grouped by calendar date
// with the full invocation timestamp in the file name.
func Key(prefix string, startedAt time.Time) string {
	t := startedAt.UTC()
	return fmt.Sprintf("%s%s/backup-%s.txt", prefix, t.Format("2006-01-02"), t.Format(time.RFC3339))
}
