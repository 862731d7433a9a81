package ai

import (
	"bufio"
	"io"
	"strings"
)

// readSSEData calls fn with the payload of every `data:` line until fn asks
// to stop, fn fails or the body ends. It reports whether fn stopped the scan.
func readSSEData(body io.Reader, fn func(data string) (stop bool, err error)) (bool, error) {
	sc := bufio.NewScanner(body)
	// Increase scanner buffer for long JSON lines.
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 2*1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		stop, err := fn(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
	}
	return false, sc.Err()
}
