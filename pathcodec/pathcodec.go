// Package pathcodec maps logical paths to access URLs.
//
// A logical path such as "/docs/笔记 1.txt" is served under a fixed access
// root. Static file servers disagree on whether they expect percent-encoded
// or raw Unicode segments, so callers fetch through Candidates and accept
// the first candidate that succeeds.
package pathcodec

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const DefaultRoot = "download"

type Codec struct {
	root string
}

// New creates a codec for the given access root. Surrounding slashes are
// ignored; the root itself is never encoded.
func New(root string) *Codec {
	return &Codec{root: strings.Trim(root, "/")}
}

func (c *Codec) Root() string {
	return c.root
}

// Normalize returns the canonical form of a logical path: NFC, absolute,
// without empty or dot segments. Parent segments never climb above "/".
func Normalize(p string) string {
	p = norm.NFC.String(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// BuildAccessURL percent-encodes every segment of the logical path
// independently and prefixes the access root.
func (c *Codec) BuildAccessURL(logicalPath string) string {
	trimmed := strings.TrimPrefix(logicalPath, "/")
	segments := strings.Split(trimmed, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return c.withRoot(strings.Join(segments, "/"))
}

// Form tells how a candidate URL spells its logical path.
type Form int

const (
	// FormEncoded percent-encodes every segment.
	FormEncoded Form = iota
	// FormRaw joins the root with the raw path.
	FormRaw
	// FormRawRooted is FormRaw anchored at the site root.
	FormRawRooted
)

func (f Form) String() string {
	switch f {
	case FormEncoded:
		return "encoded"
	case FormRaw:
		return "raw"
	case FormRawRooted:
		return "raw-rooted"
	}
	return fmt.Sprintf("Form(%d)", int(f))
}

// Candidate is one way of addressing a logical path. Path is the logical
// path every candidate of the same list stands for.
type Candidate struct {
	URL  string
	Path string
	Form Form
}

// Candidates returns the fetch candidates in priority order: the encoded
// access URL, the root joined with the raw path, and the raw form with a
// leading slash.
func (c *Codec) Candidates(logicalPath string) []Candidate {
	raw := c.withRoot(strings.TrimPrefix(logicalPath, "/"))
	return []Candidate{
		{URL: c.BuildAccessURL(logicalPath), Path: logicalPath, Form: FormEncoded},
		{URL: raw, Path: logicalPath, Form: FormRaw},
		{URL: "/" + raw, Path: logicalPath, Form: FormRawRooted},
	}
}

// CandidateURLs returns the URLs of Candidates.
func (c *Codec) CandidateURLs(logicalPath string) []string {
	candidates := c.Candidates(logicalPath)
	urls := make([]string, len(candidates))
	for i, candidate := range candidates {
		urls[i] = candidate.URL
	}
	return urls
}

// DecodeAccessURL maps a URL back to its logical path. A segment is decoded
// only when it is the canonical encoding of its decoded form, other segments
// are taken as raw text. Raw names that happen to look canonically encoded
// are ambiguous; callers holding a Candidate should use its Path instead.
func (c *Codec) DecodeAccessURL(accessURL string) (string, bool) {
	rest := strings.TrimPrefix(accessURL, "/")
	if c.root != "" {
		if rest == c.root {
			return "/", true
		}
		var ok bool
		rest, ok = strings.CutPrefix(rest, c.root+"/")
		if !ok {
			return "", false
		}
	}

	segments := strings.Split(rest, "/")
	for i, segment := range segments {
		decoded, err := url.PathUnescape(segment)
		if err != nil || url.PathEscape(decoded) != segment {
			continue
		}
		segments[i] = decoded
	}
	return "/" + strings.Join(segments, "/"), true
}

// EscapeRaw escapes the bytes a raw URL path cannot carry on the wire: '%',
// '#', '?', spaces and control characters. Everything else, Unicode
// included, is kept as is.
func EscapeRaw(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if needRawEscape(ch) {
			fmt.Fprintf(&b, "%%%02X", ch)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// ValidRaw reports whether s can go on the wire unchanged: it carries no
// byte EscapeRaw would escape other than well formed percent escapes.
func ValidRaw(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '%' {
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return false
			}
			i += 2
			continue
		}
		if needRawEscape(ch) {
			return false
		}
	}
	return true
}

func needRawEscape(ch byte) bool {
	switch ch {
	case '%', '#', '?', ' ', 0x7f:
		return true
	}
	return ch < 0x20
}

func isHex(ch byte) bool {
	switch {
	case '0' <= ch && ch <= '9', 'a' <= ch && ch <= 'f', 'A' <= ch && ch <= 'F':
		return true
	}
	return false
}

func (c *Codec) withRoot(rest string) string {
	if c.root == "" {
		return rest
	}
	return c.root + "/" + rest
}
