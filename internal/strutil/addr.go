package strutil

const defaultHost = "0.0.0.0"

// NormalizeAddress completes addresses consisting of a port only, like ":8080".
func NormalizeAddress(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return defaultHost + addr
	}

	return addr
}
