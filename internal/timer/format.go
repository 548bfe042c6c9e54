package timer

import (
	"fmt"
	"time"
)

// FormatRemaining renders a cooldown wait for display. computable is the
// second result of TimeUntilReady.
func FormatRemaining(remaining time.Duration, computable bool) string {
	if !computable {
		return "Not available"
	}
	if remaining <= 0 {
		return "Ready now"
	}

	hours := int(remaining.Hours())
	minutes := int(remaining.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm remaining", hours, minutes)
	}
	return fmt.Sprintf("%dm remaining", minutes)
}
