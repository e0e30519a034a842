package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// MetadataBase is the fixed link-local address of the instance metadata
// service.
const MetadataBase = "http://169.254.169.254"

const metadataRolePath = "/latest/meta-data/iam/security-credentials/"

// Doer performs a single HTTP exchange. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Resolver produces a credential bundle from the shared credentials file or
// the instance metadata service. The zero value is not usable; call
// NewResolver.
type Resolver struct {
	// Path is the shared credentials file location.
	Path string
	// MetadataBase overrides the metadata service address, for tests.
	MetadataBase string
	// HTTP performs the metadata service calls.
	HTTP Doer
}

// NewResolver returns a Resolver with the default credentials file path,
// metadata address and HTTP client.
func NewResolver() *Resolver {
	return &Resolver{
		Path:         DefaultSharedCredentialsPath(),
		MetadataBase: MetadataBase,
		HTTP:         http.DefaultClient,
	}
}

// Resolve produces credentials. When profile is non-empty, only that section
// of the credentials file is consulted; a missing or malformed section is a
// ProfileNotFoundError, never a fall-through to another source. When profile
// is empty, the "default" section is used if present, otherwise the metadata
// service is queried for the instance role's temporary credentials.
//
// Resolve performs no retries of its own; retry policy belongs to the
// request executor. The metadata path performs blocking network I/O and
// honors ctx, so callers should bound it with a timeout.
func (r *Resolver) Resolve(ctx context.Context, profile string) (Credentials, error) {
	if profile != "" {
		creds, ok, err := r.fromProfile(profile)
		if err != nil {
			return Credentials{}, err
		}
		if !ok {
			return Credentials{}, &ProfileNotFoundError{Name: profile}
		}
		return creds, nil
	}

	creds, ok, err := r.fromProfile("default")
	if err == nil && ok {
		return creds, nil
	}
	// No usable default profile: fall through to the metadata service.
	return r.fromMetadata(ctx)
}

// fromProfile looks up a named section. ok is false when the file, section
// or required keys are absent. err is reserved for I/O failures other than
// a missing file.
func (r *Resolver) fromProfile(name string) (Credentials, bool, error) {
	f, err := ini.Load(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, fmt.Errorf("credentials: read %s: %w", r.Path, err)
	}
	sec, err := f.GetSection(name)
	if err != nil {
		return Credentials{}, false, nil
	}
	access := strings.TrimSpace(sec.Key("aws_access_key_id").String())
	secret := strings.TrimSpace(sec.Key("aws_secret_access_key").String())
	if access == "" || secret == "" {
		// Malformed entry, treated the same as absent.
		return Credentials{}, false, nil
	}
	return Credentials{
		AccessKeyID:     access,
		SecretAccessKey: secret,
		SessionToken:    strings.TrimSpace(sec.Key("aws_session_token").String()),
	}, true, nil
}

// roleCredentials is the metadata service response for a role query.
type roleCredentials struct {
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	Token           string `json:"Token"`
	Expiration      string `json:"Expiration"`
}

// fromMetadata performs the two sequential metadata service calls: the role
// name listing, then that role's temporary credentials.
func (r *Resolver) fromMetadata(ctx context.Context) (Credentials, error) {
	role, err := r.metadataGet(ctx, metadataRolePath)
	if err != nil {
		return Credentials{}, err
	}
	roleName := strings.TrimSpace(string(role))

	body, err := r.metadataGet(ctx, metadataRolePath+roleName)
	if err != nil {
		return Credentials{}, err
	}
	var rc roleCredentials
	if err := json.Unmarshal(body, &rc); err != nil {
		return Credentials{}, &MetadataError{Status: http.StatusOK, Body: string(body)}
	}

	creds := Credentials{
		AccessKeyID:     rc.AccessKeyID,
		SecretAccessKey: rc.SecretAccessKey,
		SessionToken:    rc.Token,
	}
	if rc.Expiration != "" {
		t, err := time.Parse(time.RFC3339, rc.Expiration)
		if err != nil {
			// A zero Expiration reads as "does not expire", so a timestamp
			// the service sent but we cannot parse must not be dropped.
			return Credentials{}, &MetadataError{
				Status: http.StatusOK,
				Body:   fmt.Sprintf("unparsable Expiration %q for role %s", rc.Expiration, roleName),
			}
		}
		creds.Expiration = t
	}
	return creds, nil
}

func (r *Resolver) metadataGet(ctx context.Context, path string) ([]byte, error) {
	base := r.MetadataBase
	if base == "" {
		base = MetadataBase
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("credentials: build metadata request: %w", err)
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("credentials: metadata service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("credentials: read metadata response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &MetadataError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
