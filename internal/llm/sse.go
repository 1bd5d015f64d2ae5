package llm

import (
	"bufio"
	"io"
	"strings"
)

const (
	sseDone        = "[DONE]"
	maxSSELineSize = 1024 * 1024
)

// readSSE calls fn with the payload of every "data:" line in r. The scanner
// buffers across reads, so a line split over several network packets reaches
// fn whole. Blank lines, ":" comments and other SSE fields are skipped.
// Reading stops early when fn returns false.
func readSSE(r io.Reader, fn func(data string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		if !fn(strings.TrimPrefix(data, " ")) {
			return nil
		}
	}

	return scanner.Err()
}

func isDone(data string) bool {
	return strings.TrimSpace(data) == sseDone
}
