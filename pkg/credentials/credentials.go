// Package credentials resolves the access key, secret key and optional
// session token used to sign requests. Sources, in order: an explicitly
// named profile in the shared credentials file, the "default" profile, and
// finally the instance metadata service.
package credentials

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Credentials is an immutable credential bundle. It carries no refresh
// machinery; a caller needing fresh temporary credentials re-invokes the
// Resolver.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time // zero when the credentials do not expire
}

// Temporary reports whether the bundle carries a session token.
func (c Credentials) Temporary() bool { return c.SessionToken != "" }

// String redacts the secret key and session token.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKeyID:%s SecretAccessKey:REDACTED SessionToken:REDACTED}", c.AccessKeyID)
}

// LogValue keeps secret material out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key_id", c.AccessKeyID),
		slog.Bool("temporary", c.Temporary()),
	)
}

// ProfileNotFoundError reports a missing or malformed profile section.
type ProfileNotFoundError struct {
	Name string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("credentials: profile %q not found", e.Name)
}

// MetadataError reports a non-success response or unparsable body from the
// instance metadata service. Body is kept for diagnostics; it never contains
// caller secrets.
type MetadataError struct {
	Status int
	Body   string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("credentials: metadata service returned status %d: %s", e.Status, e.Body)
}

// DefaultSharedCredentialsPath returns the shared credentials file location,
// honoring AWS_SHARED_CREDENTIALS_FILE.
func DefaultSharedCredentialsPath() string {
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aws", "credentials")
}
