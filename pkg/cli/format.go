package cli

import (
	"fmt"
	"time"
)

// FormatDuration renders d as "850ms", "4.0s" or "2m5.5s".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Truncate(100 * time.Millisecond)
	mins := int(d / time.Minute)
	secs := (d - time.Duration(mins)*time.Minute).Seconds()
	if mins == 0 {
		return fmt.Sprintf("%.1fs", secs)
	}
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}

var byteUnits = []string{"KB", "MB", "GB"}

// FormatBytes renders a file size using binary units.
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[unit])
}
