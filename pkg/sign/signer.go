package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"s3courier/pkg/credentials"
	"s3courier/pkg/regions"
)

const (
	// Algorithm is the SigV4 signing algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"

	// TimeFormat is the x-amz-date timestamp layout (UTC, ISO-8601 basic).
	TimeFormat = "20060102T150405Z"

	// ShortTimeFormat is the scope date layout.
	ShortTimeFormat = "20060102"

	// EmptyPayloadHash is the hex SHA-256 of the empty string, used as the
	// payload hash for requests without a body.
	EmptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	service    = "s3"
	terminator = "aws4_request"
)

// Scope returns the credential scope string: YYYYMMDD/region/s3/aws4_request.
func Scope(t time.Time, region regions.Region) string {
	return strings.Join([]string{
		t.UTC().Format(ShortTimeFormat),
		region.String(),
		service,
		terminator,
	}, "/")
}

// StringToSign builds the final string handed to the signing key:
// algorithm, timestamp, scope and the hex SHA-256 of the canonical request,
// newline-joined.
func StringToSign(t time.Time, region regions.Region, hashedCanonicalRequest string) string {
	return strings.Join([]string{
		Algorithm,
		t.UTC().Format(TimeFormat),
		Scope(t, region),
		hashedCanonicalRequest,
	}, "\n")
}

// DeriveSigningKey derives the scoped signing key via the fixed HMAC-SHA256
// chain: "AWS4"+secret over the scope date, then region, service and
// terminator, each step keyed by the previous step's output.
//
// The key is derived from scratch on every call. It is deliberately not
// cached across requests so a signature can never be built on a stale date.
func DeriveSigningKey(secretKey string, t time.Time, region regions.Region) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(t.UTC().Format(ShortTimeFormat)))
	kRegion := hmacSHA256(kDate, []byte(region.String()))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(terminator))
}

// Sign computes the Authorization header value for a canonical request:
//
//	AWS4-HMAC-SHA256 Credential=<key>/<scope>,SignedHeaders=<a;b>,Signature=<hex>
//
// The same time must be used for the x-amz-date header of the request being
// signed, the string-to-sign and the scope date.
func Sign(canonicalRequest, signedHeaders string, creds credentials.Credentials, region regions.Region, t time.Time) string {
	sts := StringToSign(t, region, SHA256Hex([]byte(canonicalRequest)))
	key := DeriveSigningKey(creds.SecretAccessKey, t, region)
	signature := hex.EncodeToString(hmacSHA256(key, []byte(sts)))

	var b strings.Builder
	b.WriteString(Algorithm)
	b.WriteString(" Credential=")
	b.WriteString(creds.AccessKeyID)
	b.WriteByte('/')
	b.WriteString(Scope(t, region))
	b.WriteString(",SignedHeaders=")
	b.WriteString(signedHeaders)
	b.WriteString(",Signature=")
	b.WriteString(signature)
	return b.String()
}

// SHA256Hex returns the lowercase hex SHA-256 digest of b.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
