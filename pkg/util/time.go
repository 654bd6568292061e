package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatTimecode converts a duration to scene-record timecode format (HH:MM:SS.mmm)
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := d.Seconds()
	hours := int(total) / 3600
	minutes := (int(total) % 3600) / 60
	seconds := int(total) % 60
	millis := int(math.Round((total - math.Floor(total)) * 1000))
	if millis >= 1000 {
		millis -= 1000
		seconds++
		if seconds >= 60 {
			seconds -= 60
			minutes++
			if minutes >= 60 {
				minutes -= 60
				hours++
			}
		}
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// ParseTimecode parses a timecode string (HH:MM:SS.mmm, MM:SS or plain seconds)
func ParseTimecode(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")

	var hours, minutes, seconds float64
	var err error

	switch len(parts) {
	case 1:
		seconds, err = strconv.ParseFloat(parts[0], 64)
	case 2:
		minutes, err = strconv.ParseFloat(parts[0], 64)
		if err == nil {
			seconds, err = strconv.ParseFloat(parts[1], 64)
		}
	case 3:
		hours, err = strconv.ParseFloat(parts[0], 64)
		if err == nil {
			minutes, err = strconv.ParseFloat(parts[1], 64)
		}
		if err == nil {
			seconds, err = strconv.ParseFloat(parts[2], 64)
		}
	default:
		return 0, fmt.Errorf("invalid timecode format: %s", s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid timecode format: %s", s)
	}

	totalSeconds := hours*3600 + minutes*60 + seconds
	return time.Duration(totalSeconds * float64(time.Second)), nil
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1")
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// RoundSeconds rounds a seconds value to two decimal places
func RoundSeconds(v float64) float64 {
	return math.Round(v*100) / 100
}
