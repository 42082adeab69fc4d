package zk

import (
	"bytes"

	"github.com/marmos91/zkgo/internal/session"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

// MultiOp is one sub-operation inside a Multi transaction, supplemented
// from original_source/zookeeper/c/src/zookeeper.c's multi-op support,
// which the distilled spec.md dropped from its operation table (spec.md
// §6 [NEW]). The wire protocol already accommodates it: a MULTI request
// frames a sequence of {MultiHeader, sub-op body} triples and gets back
// one reply framing a matching sequence of {MultiHeader, sub-result}.
type MultiOp struct {
	opcode wire.OpCode
	body   []byte
}

// MultiCreate builds a Create sub-operation for Multi.
func MultiCreate(path string, data []byte, acl []ACL, flags CreateFlag) MultiOp {
	body, _ := wire.Marshal(&wire.CreateRequest{Path: path, Data: data, Acl: acl, Flags: flags})
	return MultiOp{opcode: wire.OpCreate, body: body}
}

// MultiDelete builds a Delete sub-operation for Multi.
func MultiDelete(path string, version int32) MultiOp {
	body, _ := wire.Marshal(&wire.DeleteRequest{Path: path, Version: version})
	return MultiOp{opcode: wire.OpDelete, body: body}
}

// MultiSetData builds a Set sub-operation for Multi.
func MultiSetData(path string, data []byte, version int32) MultiOp {
	body, _ := wire.Marshal(&wire.SetDataRequest{Path: path, Data: data, Version: version})
	return MultiOp{opcode: wire.OpSetData, body: body}
}

// MultiCheck builds a version-check sub-operation: it fails (and aborts
// the whole transaction) unless path is currently at version.
func MultiCheck(path string, version int32) MultiOp {
	body, _ := wire.Marshal(&wire.DeleteRequest{Path: path, Version: version})
	return MultiOp{opcode: wire.OpCheck, body: body}
}

// MultiResult is one sub-operation's outcome.
type MultiResult struct {
	Err error
}

// Multi submits every op as a single atomic transaction: either every
// sub-op applies or none do. It is a thin batching convenience over
// the same router as every other call — it introduces no new reactor
// state and does not change any invariant in spec.md §4.5.
func (c *Client) Multi(ops []MultiOp, cb func(results []MultiResult, err error)) error {
	if len(ops) == 0 {
		return zkerr.ErrBadArguments
	}

	var buf bytes.Buffer
	for _, op := range ops {
		hdr, err := wire.Marshal(&wire.MultiHeader{Type: int32(op.opcode), Done: 0, Err: -1})
		if err != nil {
			return zkerr.ErrBadArguments
		}
		buf.Write(hdr)
		buf.Write(op.body)
	}
	doneHdr, _ := wire.Marshal(&wire.MultiHeader{Type: -1, Done: 1, Err: -1})
	buf.Write(doneHdr)

	return c.sess.Call(wire.OpMulti, buf.Bytes(), session.KindVoid, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb(nil, callErr)
			return
		}

		results := make([]MultiResult, 0, len(ops))
		rest := respBody
		for {
			var mh wire.MultiHeader
			n, err := wire.Unmarshal(rest, &mh)
			if err != nil {
				cb(results, zkerr.ErrBadArguments)
				return
			}
			rest = rest[n:]
			if mh.Done != 0 {
				break
			}

			var subErr error
			if mh.Err != 0 {
				subErr = zkerr.New(zkerr.Code(mh.Err))
			} else if len(results) < len(ops) {
				// Skip the sub-op's own body; its shape mirrors the
				// corresponding single-op response and callers that
				// need it should use the single-op call instead —
				// Multi only reports per-op success/failure.
				consumed, _ := wire.Unmarshal(rest, opResponseFor(ops[len(results)].opcode))
				rest = rest[consumed:]
			}
			results = append(results, MultiResult{Err: subErr})
		}
		cb(results, nil)
	})
}

// opResponseFor returns a scratch response value of the right shape to
// consume (and discard) a successful sub-op's reply body, so the
// cursor advances correctly to the next MultiHeader.
func opResponseFor(opcode wire.OpCode) any {
	switch opcode {
	case wire.OpCreate:
		return &wire.CreateResponse{}
	case wire.OpSetData:
		return &wire.SetDataResponse{}
	default:
		return &struct{}{}
	}
}
