package mime

import (
	"strings"

	"github.com/indigo-web/wire/internal/strutil"
)

type MIME = string

const (
	OctetStream    MIME = "application/octet-stream"
	Plain          MIME = "text/plain"
	HTML           MIME = "text/html"
	JSON           MIME = "application/json"
	FormUrlencoded MIME = "application/x-www-form-urlencoded"
)

// Complies returns whether the Content-Type value is compatible with the MIME. Parameters
// are ignored and an empty value is considered compatible with any MIME.
func Complies(mime MIME, with string) bool {
	with, _ = strutil.CutHeader(with)

	return len(with) == 0 || strings.EqualFold(with, mime)
}
