package auth

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/pbkdf2"
)

func TestDigest(t *testing.T) {
	scheme, cred := Digest("alice", "s3cret")
	assert.Equal(t, "digest", scheme)

	sum := sha1.Sum([]byte("alice:s3cret"))
	want := fmt.Sprintf("alice:%s", base64.StdEncoding.EncodeToString(sum[:]))
	assert.Equal(t, want, string(cred))
}

func TestDigestIsDeterministic(t *testing.T) {
	_, cred1 := Digest("alice", "s3cret")
	_, cred2 := Digest("alice", "s3cret")
	assert.Equal(t, cred1, cred2)
}

func TestDigestDifferentPasswordsDiffer(t *testing.T) {
	_, cred1 := Digest("alice", "s3cret")
	_, cred2 := Digest("alice", "other")
	assert.NotEqual(t, cred1, cred2)
}

func TestDigestWithOptionsKDF(t *testing.T) {
	opts := DigestOptions{KDFRounds: 4096, Salt: []byte("pepper")}
	scheme, cred := DigestWithOptions("bob", "hunter2", opts)
	assert.Equal(t, "digest", scheme)

	key := pbkdf2.Key([]byte("hunter2"), []byte("pepper"), 4096, sha1.Size, sha1.New)
	want := fmt.Sprintf("bob:%s", base64.StdEncoding.EncodeToString(key))
	assert.Equal(t, want, string(cred))
}

func TestDigestWithOptionsRequiresSaltToDiffer(t *testing.T) {
	optsA := DigestOptions{KDFRounds: 1000, Salt: []byte("a")}
	optsB := DigestOptions{KDFRounds: 1000, Salt: []byte("b")}
	_, credA := DigestWithOptions("bob", "hunter2", optsA)
	_, credB := DigestWithOptions("bob", "hunter2", optsB)
	assert.NotEqual(t, credA, credB)
}
