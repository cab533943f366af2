// Package media validates client-supplied media pointers and issues
// presigned storage grants. Clients never hand the backend a URL that is
// trusted as-is: every pointer is re-parsed against the bucket allow-list
// and the room's key prefix before it is stored or resolved.
package media

import (
	"fmt"
	"net/url"
	"strings"

	"lovelink/backend/internal/apperr"
)

// Ref is a canonical, server-validated pointer to a stored object.
type Ref struct {
	Bucket string
	Key    string
}

// String renders the stored reference form, s3://bucket/key.
func (r Ref) String() string {
	return "s3://" + r.Bucket + "/" + r.Key
}

// Normalizer parses native and web URL reference forms into a Ref,
// restricted to the allow-listed buckets.
type Normalizer struct {
	allowed map[string]struct{}
}

func NewNormalizer(buckets []string) *Normalizer {
	allowed := make(map[string]struct{}, len(buckets))
	for _, b := range buckets {
		allowed[b] = struct{}{}
	}
	return &Normalizer{allowed: allowed}
}

var errInvalidRef = apperr.New(apperr.ValidationInvalidFormat, "invalid media reference")

// ToStoredRef parses either the native s3://bucket/key scheme or the
// equivalent web URL (virtual-hosted or path style). Unknown shapes and
// buckets outside the allow-list fail with ValidationInvalidFormat.
func (n *Normalizer) ToStoredRef(input string) (Ref, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Ref{}, errInvalidRef
	}

	u, err := url.Parse(input)
	if err != nil {
		return Ref{}, errInvalidRef
	}

	var ref Ref
	switch u.Scheme {
	case "s3":
		ref = Ref{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}
	case "http", "https":
		ref, err = parseWebForm(u)
		if err != nil {
			return Ref{}, err
		}
	default:
		return Ref{}, errInvalidRef
	}

	if ref.Bucket == "" || ref.Key == "" {
		return Ref{}, errInvalidRef
	}
	if _, ok := n.allowed[ref.Bucket]; !ok {
		return Ref{}, errInvalidRef
	}
	return ref, nil
}

// ToChatScopedRef additionally pins the key under the room's own prefix,
// chat/{roomID}/, so a participant cannot point a message at another room's
// media by guessing a URL.
func (n *Normalizer) ToChatScopedRef(roomID uint, input string) (Ref, error) {
	ref, err := n.ToStoredRef(input)
	if err != nil {
		return Ref{}, err
	}
	prefix := fmt.Sprintf("chat/%d/", roomID)
	if !strings.HasPrefix(ref.Key, prefix) {
		return Ref{}, errInvalidRef
	}
	return ref, nil
}

// parseWebForm handles the two S3 web URL shapes:
//
//	virtual-hosted  https://{bucket}.s3.{region}.amazonaws.com/{key}
//	path style      https://s3.{region}.amazonaws.com/{bucket}/{key}
func parseWebForm(u *url.URL) (Ref, error) {
	host := u.Hostname()
	path := strings.TrimPrefix(u.Path, "/")

	if strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-") {
		if !strings.HasSuffix(host, ".amazonaws.com") {
			return Ref{}, errInvalidRef
		}
		bucket, key, found := strings.Cut(path, "/")
		if !found {
			return Ref{}, errInvalidRef
		}
		return Ref{Bucket: bucket, Key: key}, nil
	}

	bucket, rest, found := strings.Cut(host, ".s3")
	if !found || bucket == "" {
		return Ref{}, errInvalidRef
	}
	if !strings.HasSuffix(rest, ".amazonaws.com") && rest != ".amazonaws.com" {
		return Ref{}, errInvalidRef
	}
	return Ref{Bucket: bucket, Key: path}, nil
}
