package strutil

import "strings"

func LStripWS(str string) string {
	for i, c := range str {
		switch c {
		case ' ', '\t':
		default:
			return str[i:]
		}
	}

	return ""
}

func RStripWS(str string) string {
	for i := len(str); i > 0; i-- {
		switch str[i-1] {
		case ' ', '\t':
		default:
			return str[:i]
		}
	}

	return ""
}

// CutHeader separates the header value from its parameters. Whitespaces around the value and
// leading whitespaces of the parameters are stripped.
func CutHeader(header string) (value, params string) {
	value, params, _ = strings.Cut(header, ";")
	return RStripWS(LStripWS(value)), LStripWS(params)
}

// HasToken reports whether the comma-separated list contains the token. Comparison is
// case-sensitive, so both are expected to be already lower-cased.
func HasToken(list, token string) bool {
	for len(list) > 0 {
		var item string
		item, list, _ = strings.Cut(list, ",")
		if RStripWS(LStripWS(item)) == token {
			return true
		}
	}

	return false
}
