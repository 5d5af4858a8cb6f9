package engine

import (
	"bufio"
	"regexp"
	"strings"
	"time"

	"github.com/stratusops/spikecorr/internal/utils"
)

// logTimestampPattern captures the bracketed Common Log Format timestamp
// field, e.g. [02/Jan/2006:15:04:05 +0000].
var logTimestampPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// lineTimestamp extracts and parses the timestamp of one access-log line.
// Window membership is always decided on the parsed value; comparing the raw
// text is unsound across day and month boundaries.
func lineTimestamp(line string) (time.Time, bool) {
	match := logTimestampPattern.FindStringSubmatch(line)
	if match == nil {
		return time.Time{}, false
	}
	t, err := utils.ParseAccessLogTime(match[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// countLinesInWindow counts lines whose parsed timestamp falls inside the
// closed interval [start, end]. Lines without a parseable timestamp are
// ignored.
func countLinesInWindow(raw string, start, end time.Time) int {
	count := 0
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if t, ok := lineTimestamp(scanner.Text()); ok && utils.InWindow(t, start, end) {
			count++
		}
	}
	return count
}

// filterLinesInWindow returns, verbatim and in file order, the lines whose
// parsed timestamp falls inside the closed interval [start, end].
func filterLinesInWindow(raw string, start, end time.Time) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if t, ok := lineTimestamp(line); ok && utils.InWindow(t, start, end) {
			lines = append(lines, line)
		}
	}
	return lines
}
