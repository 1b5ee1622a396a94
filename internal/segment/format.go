package segment

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/martinlindhe/unit"
)

const notAvailable = "N/A"

// FormatDistance renders meters in the user's unit ("km" or "mi").
func FormatDistance(meters float64, distanceUnit string) string {
	length := unit.Length(meters) * unit.Meter
	if distanceUnit == "mi" {
		return humanize.FormatFloat("#,###.##", length.Miles()) + " mi"
	}
	return humanize.FormatFloat("#,###.##", length.Kilometers()) + " km"
}

// FormatMinutes renders a duration as "1d 2h 3m", omitting leading zero parts.
func FormatMinutes(minutes int64) string {
	if minutes <= 0 {
		return "0m"
	}
	days := minutes / (24 * 60)
	hours := minutes % (24 * 60) / 60
	mins := minutes % 60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}

// Popup is the HTML body shown when a polyline is clicked.
func Popup(st Stats, distanceUnit string) string {
	lines := []string{
		"<b>Start:</b> " + formatTime(st.StartedAt),
		"<b>End:</b> " + formatTime(st.EndedAt),
		"<b>Duration:</b> " + FormatMinutes(st.DurationMinutes),
		"<b>Total Distance:</b> " + FormatDistance(st.DistanceMeters, distanceUnit),
		"<b>Prev Route:</b> " + formatGap(st.Prev, distanceUnit),
		"<b>Next Route:</b> " + formatGap(st.Next, distanceUnit),
	}
	return strings.Join(lines, "<br>")
}

func formatGap(g *Gap, distanceUnit string) string {
	if g == nil {
		return notAvailable
	}
	return FormatDistance(g.Meters, distanceUnit) + " away, " + FormatMinutes(g.Minutes) + " apart"
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
