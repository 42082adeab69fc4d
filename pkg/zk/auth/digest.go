// Package auth supplies credential producers for the SETAUTH
// sub-protocol (spec.md §4.7): each returns the (scheme, credential
// bytes) pair to hand to Client.AddAuth. spec.md and
// original_source/zookeeper/c/src/zookeeper.c both treat auth schemes
// as opaque (scheme, cert) blobs and never specify how a caller
// produces one — this package fills that gap in the teacher's idiom.
package auth

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// DigestOptions tunes the digest scheme's credential derivation.
type DigestOptions struct {
	// KDFRounds, when non-zero, derives a session-bound key via
	// PBKDF2-HMAC-SHA1 instead of the conventional single SHA1 pass,
	// for deployments that require a hardened digest credential.
	KDFRounds int
	// Salt is required when KDFRounds > 0.
	Salt []byte
}

// Digest builds the conventional "digest" scheme credential:
// "user:base64(sha1(user:pass))", matching the scheme most
// coordination-service deployments accept out of the box.
func Digest(user, pass string) (scheme string, cred []byte) {
	return DigestWithOptions(user, pass, DigestOptions{})
}

// DigestWithOptions is Digest with KDF hardening available.
func DigestWithOptions(user, pass string, opts DigestOptions) (scheme string, cred []byte) {
	var key []byte
	if opts.KDFRounds > 0 {
		key = pbkdf2.Key([]byte(pass), opts.Salt, opts.KDFRounds, sha1.Size, sha1.New)
	} else {
		sum := sha1.Sum([]byte(user + ":" + pass))
		key = sum[:]
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	return "digest", []byte(fmt.Sprintf("%s:%s", user, encoded))
}
