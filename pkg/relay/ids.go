// Copyright 2024-2026 Aiku AI

package relay

import "strconv"

// FormatChatID renders a chat ID the way it appears in notices and the
// forwarded-message header.
func FormatChatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseChatID parses a chat ID from its string form.
func ParseChatID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// FormatMessageID renders a transport message ID.
func FormatMessageID(id int) string {
	return strconv.Itoa(id)
}

// ParseMessageID parses a transport message ID from its string form.
func ParseMessageID(s string) (int, error) {
	return strconv.Atoi(s)
}
