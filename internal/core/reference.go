package core

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	bareIDPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
	docsPathRegex  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	drivePathRegex = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
)

// ResolveReference extracts a SheetReference from user input.
//
// Accepted forms are a bare sheet ID, a docs or drive URL, or any URL
// carrying an id/key query parameter. gid and sheet/sheetName are read from
// the query string first and then from the URL fragment. Resolution never
// fails; input it cannot understand yields the zero reference.
func ResolveReference(input string) SheetReference {
	raw := strings.TrimSpace(input)
	var ref SheetReference

	if bareIDPattern.MatchString(raw) {
		ref.SheetID = raw
		return ref
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ref
	}

	query := searchParams(u.RawQuery)
	ref.SheetID = firstNonEmpty(
		submatch(docsPathRegex, u.Path),
		submatch(drivePathRegex, u.Path),
		query.Get("id"),
		query.Get("key"),
	)
	ref.GID = query.Get("gid")
	ref.SheetName = firstNonEmpty(query.Get("sheet"), query.Get("sheetName"))

	if u.Fragment != "" {
		// Fragments like "#gid=123" use query syntax.
		frag := searchParams(u.EscapedFragment())
		if ref.GID == "" {
			ref.GID = frag.Get("gid")
		}
		if ref.SheetName == "" {
			ref.SheetName = firstNonEmpty(frag.Get("sheet"), frag.Get("sheetName"))
		}
	}

	return ref
}

// searchParams parses a query string the way browsers do: pairs split on
// "&" only, so a ";" stays part of the value, and a malformed escape is kept
// literally instead of dropping the pair.
func searchParams(raw string) url.Values {
	values := make(url.Values)
	for _, pair := range strings.Split(strings.TrimPrefix(raw, "?"), "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		values.Add(unescapeParam(key), unescapeParam(value))
	}
	return values
}

func unescapeParam(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "+", " ")
}

func submatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
