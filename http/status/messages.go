package status

// IsSafeInHeader tells whether the message may be used as a reason phrase or a header value
// as is. Safe messages consist of TEXT only: no control characters except horizontal tab.
func IsSafeInHeader(message string) bool {
	for i := 0; i < len(message); i++ {
		c := message[i]
		if (c >= 32 && c <= 126) || c >= 128 || c == '\t' {
			continue
		}

		return false
	}

	return true
}
