package wire

import (
	"bytes"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// The structures below are the per-operation request/response bodies.
// spec.md §1 explicitly treats this record layer as an external,
// out-of-scope collaborator ("a black box producing/consuming opaque
// framed byte strings"); these are a minimal, real implementation of
// that collaborator so the client is exercisable end-to-end, not a
// stub — the core's invariants (§3-§5) do not depend on any detail
// below this line.

// Id identifies a principal under an ACL scheme (spec.md Glossary:
// "ACL ... a set of {permission-mask, identity-scheme, identity}
// triples").
type Id struct {
	Scheme string
	ID     string
}

// ACL is a single access-control entry.
type ACL struct {
	Perms int32
	ID    Id
}

// Predefined identities and ACLs (spec.md §6).
var (
	AnyoneIdUnsafe = Id{Scheme: "world", ID: "anyone"}
	AuthIds        = Id{Scheme: "auth", ID: ""}

	OpenACLUnsafe   = []ACL{{Perms: PermAll, ID: AnyoneIdUnsafe}}
	ReadACLUnsafe   = []ACL{{Perms: PermRead, ID: AnyoneIdUnsafe}}
	CreatorAllACL   = []ACL{{Perms: PermAll, ID: AuthIds}}
)

// ACL permission bits (spec.md §6).
const (
	PermRead   int32 = 1
	PermWrite  int32 = 2
	PermCreate int32 = 4
	PermDelete int32 = 8
	PermAdmin  int32 = 16
	PermAll    int32 = 31
)

// Stat describes a znode's metadata.
type Stat struct {
	Czxid          int64
	Mzxid          int64
	Ctime          int64
	Mtime          int64
	Version        int32
	Cversion       int32
	Aversion       int32
	EphemeralOwner int64
	DataLength     int32
	NumChildren    int32
	Pzxid          int64
}

type CreateRequest struct {
	Path  string
	Data  []byte
	Acl   []ACL
	Flags int32
}

type CreateResponse struct {
	Path string
}

type DeleteRequest struct {
	Path    string
	Version int32
}

type GetDataRequest struct {
	Path  string
	Watch int32
}

type GetDataResponse struct {
	Data []byte
	Stat Stat
}

type SetDataRequest struct {
	Path    string
	Data    []byte
	Version int32
}

type SetDataResponse struct {
	Stat Stat
}

type ExistsRequest struct {
	Path  string
	Watch int32
}

type ExistsResponse struct {
	Stat Stat
}

type GetChildren2Request struct {
	Path  string
	Watch int32
}

type GetChildren2Response struct {
	Children []string
	Stat     Stat
}

type GetACLRequest struct {
	Path string
}

type GetACLResponse struct {
	Acl  []ACL
	Stat Stat
}

type SetACLRequest struct {
	Path    string
	Acl     []ACL
	Version int32
}

type SetACLResponse struct {
	Stat Stat
}

type SyncRequest struct {
	Path string
}

type SyncResponse struct {
	Path string
}

type SetAuthRequest struct {
	Type   int32
	Scheme string
	Auth   []byte
}

// MultiHeader precedes each sub-operation inside a MULTI request/reply
// body (spec.md §6 [NEW] Multi op, supplemented from
// original_source/zookeeper/c/src/zookeeper.c).
type MultiHeader struct {
	Type int32
	Done int32
	Err  int32
}

// Marshal encodes v (one of the *Request/*Response types above) as an
// XDR record.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an XDR record from data into v, returning the
// number of bytes consumed.
func Unmarshal(data []byte, v any) (int, error) {
	n, err := xdr.Unmarshal(bytes.NewReader(data), v)
	return n, err
}
