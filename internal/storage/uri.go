package storage

import (
	"fmt"
	"strings"
)

const uriScheme = "gs://"

// IsRemote reports whether the reference is an object-storage URI rather
// than a local filesystem path.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, uriScheme)
}

// SplitURI parses a gs://bucket/key reference into bucket and key.
func SplitURI(uri string) (bucket, key string, err error) {
	if !IsRemote(uri) {
		return "", "", fmt.Errorf("uri must start with %s: %q", uriScheme, uri)
	}
	rest := strings.TrimPrefix(uri, uriScheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("uri must name a bucket and key: %q", uri)
	}
	return bucket, key, nil
}

// JoinURI builds a gs:// reference from bucket and key parts.
func JoinURI(bucket string, parts ...string) string {
	key := strings.Join(parts, "/")
	return uriScheme + bucket + "/" + strings.TrimLeft(key, "/")
}
