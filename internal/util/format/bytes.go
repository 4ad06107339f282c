// Package format renders values for status lines and summaries.
package format

import "fmt"

// HumanizeBytes renders a byte count with a binary-scaled unit, keeping
// one decimal place above 1 KB: "512 B", "1.5 KB", "4.2 GB".
func HumanizeBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n)
	for _, suffix := range []string{"KB", "MB", "GB", "TB"} {
		v /= unit
		if v < unit {
			return fmt.Sprintf("%.1f %s", v, suffix)
		}
	}
	return fmt.Sprintf("%.1f PB", v/unit)
}
