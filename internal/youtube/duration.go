package youtube

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDuration converts a "h:mm:ss", "m:ss" or "ss" badge to seconds.
func ParseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var total float64
	for part := range strings.SplitSeq(s, ":") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		total = total*60 + float64(n)
	}
	return total, nil
}
