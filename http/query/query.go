package query

import (
	"net/url"
	"strings"

	"github.com/indigo-web/wire/http/status"
	"github.com/indigo-web/wire/kv"
)

type Params = *kv.Storage

// Query is a lazy structure for accessing URI parameters. Parameters aren't parsed until
// requested for the first time.
type Query struct {
	parsed bool
	err    error
	params Params
	raw    string
}

func New(underlying *kv.Storage) *Query {
	return &Query{
		params: underlying,
	}
}

// Set replaces the raw query. Previously parsed parameters are discarded.
func (q *Query) Set(raw string) {
	q.raw = raw

	if q.parsed {
		q.parsed = false
		q.err = nil
		q.params.Clear()
	}
}

// Get returns the first value of the key. The values are percent-decoded.
func (q *Query) Get(key string) (value string, found bool) {
	if q.parse() != nil {
		return "", false
	}

	return q.params.Get(key)
}

// Unwrap returns all the parameters, or status.ErrBadQuery if the query can't be decoded.
func (q *Query) Unwrap() (Params, error) {
	return q.params, q.parse()
}

func (q *Query) Raw() string {
	return q.raw
}

func (q *Query) parse() error {
	if q.parsed {
		return q.err
	}

	q.parsed = true
	q.err = parse(q.raw, q.params)

	return q.err
}

func parse(raw string, into *kv.Storage) error {
	for len(raw) > 0 {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if len(pair) == 0 {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return status.ErrBadQuery
		}

		value, err = url.QueryUnescape(value)
		if err != nil {
			return status.ErrBadQuery
		}

		into.Add(key, value)
	}

	return nil
}
