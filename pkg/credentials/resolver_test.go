package credentials

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// blockedDoer fails the test if any network call is made.
type blockedDoer struct {
	t     *testing.T
	calls int
}

func (d *blockedDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	d.t.Errorf("unexpected metadata service call")
	return nil, errors.New("network disabled in test")
}

func writeCredentialsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write credentials file: %v", err)
	}
	return path
}

func TestResolveExplicitProfile(t *testing.T) {
	path := writeCredentialsFile(t, `
[default]
aws_access_key_id = DEFAULTKEY
aws_secret_access_key = defaultsecret

[work]
aws_access_key_id = WORKKEY
aws_secret_access_key = worksecret
aws_session_token = worktoken
`)
	d := &blockedDoer{t: t}
	r := &Resolver{Path: path, HTTP: d}

	creds, err := r.Resolve(context.Background(), "work")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if creds.AccessKeyID != "WORKKEY" || creds.SecretAccessKey != "worksecret" || creds.SessionToken != "worktoken" {
		t.Errorf("unexpected credentials: %+v", creds.AccessKeyID)
	}
	if d.calls != 0 {
		t.Errorf("metadata service contacted %d times, want 0", d.calls)
	}
}

func TestResolveExplicitProfileMissing(t *testing.T) {
	path := writeCredentialsFile(t, `
[default]
aws_access_key_id = DEFAULTKEY
aws_secret_access_key = defaultsecret
`)
	d := &blockedDoer{t: t}
	r := &Resolver{Path: path, HTTP: d}

	_, err := r.Resolve(context.Background(), "work")
	var pnf *ProfileNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("expected *ProfileNotFoundError, got %v", err)
	}
	if pnf.Name != "work" {
		t.Errorf("ProfileNotFoundError.Name = %q, want %q", pnf.Name, "work")
	}
	if d.calls != 0 {
		t.Errorf("metadata service contacted %d times, want 0", d.calls)
	}
}

func TestResolveExplicitProfileMalformed(t *testing.T) {
	// A section missing the secret key is treated as not found, never as a
	// fall-through to another source.
	path := writeCredentialsFile(t, `
[work]
aws_access_key_id = WORKKEY
`)
	d := &blockedDoer{t: t}
	r := &Resolver{Path: path, HTTP: d}

	_, err := r.Resolve(context.Background(), "work")
	var pnf *ProfileNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("expected *ProfileNotFoundError, got %v", err)
	}
}

func TestResolveDefaultProfile(t *testing.T) {
	path := writeCredentialsFile(t, `
[default]
aws_access_key_id = DEFAULTKEY
aws_secret_access_key = defaultsecret
`)
	d := &blockedDoer{t: t}
	r := &Resolver{Path: path, HTTP: d}

	creds, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if creds.AccessKeyID != "DEFAULTKEY" || creds.SecretAccessKey != "defaultsecret" {
		t.Errorf("unexpected credentials: %s", creds.AccessKeyID)
	}
	if creds.Temporary() {
		t.Errorf("long-lived profile credentials reported as temporary")
	}
	if d.calls != 0 {
		t.Errorf("metadata service contacted %d times, want 0", d.calls)
	}
}

func TestResolveMetadataFallback(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/latest/meta-data/iam/security-credentials/":
			_, _ = w.Write([]byte("instance-role\n"))
		case "/latest/meta-data/iam/security-credentials/instance-role":
			_, _ = w.Write([]byte(`{
				"AccessKeyId": "ASIAMETA",
				"SecretAccessKey": "metasecret",
				"Token": "metatoken",
				"Expiration": "2026-09-01T12:00:00Z"
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := &Resolver{
		Path:         filepath.Join(t.TempDir(), "no-such-file"),
		MetadataBase: srv.URL,
		HTTP:         srv.Client(),
	}
	creds, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if creds.AccessKeyID != "ASIAMETA" || creds.SecretAccessKey != "metasecret" || creds.SessionToken != "metatoken" {
		t.Errorf("unexpected credentials: %s", creds.AccessKeyID)
	}
	want := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if !creds.Expiration.Equal(want) {
		t.Errorf("expiration = %v, want %v", creds.Expiration, want)
	}
	if len(paths) != 2 ||
		paths[0] != "/latest/meta-data/iam/security-credentials/" ||
		paths[1] != "/latest/meta-data/iam/security-credentials/instance-role" {
		t.Errorf("metadata call sequence = %v", paths)
	}
}

func TestResolveMetadataNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no role attached", http.StatusNotFound)
	}))
	defer srv.Close()

	r := &Resolver{
		Path:         filepath.Join(t.TempDir(), "no-such-file"),
		MetadataBase: srv.URL,
		HTTP:         srv.Client(),
	}
	_, err := r.Resolve(context.Background(), "")
	var me *MetadataError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MetadataError, got %v", err)
	}
	if me.Status != http.StatusNotFound || !strings.Contains(me.Body, "no role attached") {
		t.Errorf("MetadataError = %+v", me)
	}
}

func TestResolveMetadataBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/latest/meta-data/iam/security-credentials/" {
			_, _ = w.Write([]byte("role"))
			return
		}
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	r := &Resolver{
		Path:         filepath.Join(t.TempDir(), "no-such-file"),
		MetadataBase: srv.URL,
		HTTP:         srv.Client(),
	}
	_, err := r.Resolve(context.Background(), "")
	var me *MetadataError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MetadataError, got %v", err)
	}
	if !strings.Contains(me.Body, "not json") {
		t.Errorf("MetadataError body = %q", me.Body)
	}
}

func TestResolveMetadataMalformedExpiration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/latest/meta-data/iam/security-credentials/" {
			_, _ = w.Write([]byte("instance-role"))
			return
		}
		_, _ = w.Write([]byte(`{
			"AccessKeyId": "ASIAMETA",
			"SecretAccessKey": "metasecret",
			"Token": "metatoken",
			"Expiration": "tomorrow-ish"
		}`))
	}))
	defer srv.Close()

	r := &Resolver{
		Path:         filepath.Join(t.TempDir(), "no-such-file"),
		MetadataBase: srv.URL,
		HTTP:         srv.Client(),
	}
	_, err := r.Resolve(context.Background(), "")
	var me *MetadataError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MetadataError, got %v", err)
	}
	if !strings.Contains(me.Body, "Expiration") || !strings.Contains(me.Body, "tomorrow-ish") {
		t.Errorf("MetadataError body = %q", me.Body)
	}
	if strings.Contains(me.Body, "metasecret") || strings.Contains(me.Body, "metatoken") {
		t.Errorf("MetadataError body leaks secret material: %q", me.Body)
	}
}

func TestCredentialsRedaction(t *testing.T) {
	c := Credentials{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "supersecretvalue",
		SessionToken:    "supersecrettoken",
	}
	s := c.String()
	if strings.Contains(s, "supersecretvalue") || strings.Contains(s, "supersecrettoken") {
		t.Errorf("String leaks secret material: %s", s)
	}
	if !strings.Contains(s, "AKIDEXAMPLE") {
		t.Errorf("String should keep the access key id: %s", s)
	}
	lv := c.LogValue().String()
	if strings.Contains(lv, "supersecretvalue") || strings.Contains(lv, "supersecrettoken") {
		t.Errorf("LogValue leaks secret material: %s", lv)
	}
}
