// Package sign implements AWS Signature Version 4 request canonicalization
// and signature computation for the S3 service.
//
// The canonicalization functions are pure and hold no shared state so they
// can be unit tested directly against fixed vectors.
package sign

import (
	"fmt"
	"sort"
	"strings"
)

// EncodePath percent-encodes a URI path for the canonical request.
// ALPHA / DIGIT / '_' '-' '~' '.' '/' pass through unescaped. A literal '%'
// is preserved only when followed by two hex digits (an already-escaped
// triplet); a bare '%' is re-escaped as %25. Everything else becomes %XX
// uppercase hex. The function is idempotent on its own output.
func EncodePath(p string) string {
	return escape(p, false)
}

// EncodeQuery builds the canonical query string. Keys are sorted by bytewise
// comparison; a key with no values serializes with a trailing '=' as if it
// had a single empty value, per the signing spec.
func EncodeQuery(query map[string][]string) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		ek := escape(k, true)
		vs := query[k]
		if len(vs) == 0 {
			parts = append(parts, ek+"=")
			continue
		}
		for _, v := range vs {
			parts = append(parts, ek+"="+escape(v, true))
		}
	}
	return strings.Join(parts, "&")
}

// CanonicalHeaders lowercases header names, trims surrounding whitespace
// from values, sorts the (name, value) pairs bytewise by name, and returns
// the header block (one "name:value\n" line per pair) together with the
// semicolon-joined signed-header name list.
//
// Duplicate names that collapse to the same lowercase form are kept as
// separate lines rather than merged into a comma-joined value.
func CanonicalHeaders(headers map[string]string) (block, signed string) {
	type pair struct{ name, value string }
	pairs := make([]pair, 0, len(headers))
	for k, v := range headers {
		pairs = append(pairs, pair{strings.ToLower(k), strings.TrimSpace(v)})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].name != pairs[j].name {
			return pairs[i].name < pairs[j].name
		}
		return pairs[i].value < pairs[j].value
	})

	var b strings.Builder
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		b.WriteString(p.name)
		b.WriteByte(':')
		b.WriteString(p.value)
		b.WriteByte('\n')
		names = append(names, p.name)
	}
	return b.String(), strings.Join(names, ";")
}

// BuildCanonicalRequest assembles the canonical request string:
//
//	METHOD \n PATH \n QUERY \n HEADER-BLOCK \n SIGNED-HEADERS \n PAYLOAD-HASH
//
// The blank line separating the header block from the signed-header list
// comes from the trailing newline each header line already carries.
// It returns the canonical string and the signed-header list.
func BuildCanonicalRequest(method, path string, query map[string][]string, headers map[string]string, payloadHash string) (string, string) {
	block, signed := CanonicalHeaders(headers)
	canonical := strings.Join([]string{
		method,
		EncodePath(path),
		EncodeQuery(query),
		block,
		signed,
		payloadHash,
	}, "\n")
	return canonical, signed
}

func escape(s string, encodeSlash bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9',
			c == '_' || c == '-' || c == '~' || c == '.':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		case c == '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				b.WriteString(s[i : i+3])
				i += 2
			} else {
				b.WriteString("%25")
			}
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
