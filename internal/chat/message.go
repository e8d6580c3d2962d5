package chat

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Message is a single parsed transcript entry.
type Message struct {
	Timestamp time.Time
	Sender    string
	Body      string
	Line      int // 1-based line number of the message start
}

// messagePattern matches the start of a message:
// DD/M/YYYY, H:MM a.m. - Sender: body
var messagePattern = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{4}), (\d{1,2}):(\d{2})\s*(a\.\s?m\.|p\.\s?m\.|AM|PM|am|pm) - ([^:]+): (.*)$`)

// ParseMessages extracts messages from transcript lines. Lines that do not
// open a new message are treated as continuations of the previous one.
func ParseMessages(lines []string) []Message {
	var messages []Message
	for i, raw := range lines {
		line := strings.TrimSpace(StripFormatRunes(raw))
		if line == "" {
			continue
		}
		match := messagePattern.FindStringSubmatch(line)
		if match == nil {
			if len(messages) > 0 {
				messages[len(messages)-1].Body += " " + line
			}
			continue
		}
		ts, ok := parseMessageTimestamp(match[1], match[2], match[3], match[4])
		if !ok {
			continue
		}
		messages = append(messages, Message{
			Timestamp: ts,
			Sender:    strings.TrimSpace(match[5]),
			Body:      match[6],
			Line:      i + 1,
		})
	}
	return messages
}

func parseMessageTimestamp(dateStr, hourStr, minuteStr, meridiem string) (time.Time, bool) {
	parts := strings.Split(dateStr, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err1 := atoi(parts[0])
	month, err2 := atoi(parts[1])
	year, err3 := atoi(parts[2])
	hour, err4 := atoi(hourStr)
	minute, err5 := atoi(minuteStr)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	switch normalizeMeridiem(meridiem) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
}

func normalizeMeridiem(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func atoi(s string) (int, error) {
	var n int
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotANumber
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

const errNotANumber = parseError("not a number")
