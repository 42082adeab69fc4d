package zk

import (
	"context"

	"github.com/marmos91/zkgo/internal/session"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/zk/zkerr"
)

func boolToWatch(w bool) int32 {
	if w {
		return 1
	}
	return 0
}

// GetDataCallback receives the result of an asynchronous Get.
type GetDataCallback func(data []byte, stat *Stat, err error)

// Get asynchronously fetches a node's data (spec.md §6's "Get" op).
func (c *Client) Get(path string, watch bool, cb GetDataCallback) error {
	body, err := wire.Marshal(&wire.GetDataRequest{Path: path, Watch: boolToWatch(watch)})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpGetData, body, session.KindData, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb(nil, nil, callErr)
			return
		}
		var resp wire.GetDataResponse
		if _, err := wire.Unmarshal(respBody, &resp); err != nil {
			cb(nil, nil, zkerr.ErrBadArguments)
			return
		}
		cb(resp.Data, &resp.Stat, nil)
	})
}

// GetSync is the blocking wrapper over Get, mechanically derived from
// the async form per spec.md §6.
func (c *Client) GetSync(ctx context.Context, path string, watch bool) ([]byte, *Stat, error) {
	type result struct {
		data []byte
		stat *Stat
		err  error
	}
	done := make(chan result, 1)
	if err := c.Get(path, watch, func(data []byte, stat *Stat, err error) {
		done <- result{data, stat, err}
	}); err != nil {
		return nil, nil, err
	}
	select {
	case r := <-done:
		return r.data, r.stat, r.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// StatCallback receives the result of any op whose reply is only a Stat.
type StatCallback func(stat *Stat, err error)

// Set asynchronously replaces a node's data (spec.md §6's "Set" op).
func (c *Client) Set(path string, data []byte, version int32, cb StatCallback) error {
	body, err := wire.Marshal(&wire.SetDataRequest{Path: path, Data: data, Version: version})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpSetData, body, session.KindStat, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb(nil, callErr)
			return
		}
		var resp wire.SetDataResponse
		if _, err := wire.Unmarshal(respBody, &resp); err != nil {
			cb(nil, zkerr.ErrBadArguments)
			return
		}
		cb(&resp.Stat, nil)
	})
}

// SetSync is the blocking wrapper over Set.
func (c *Client) SetSync(ctx context.Context, path string, data []byte, version int32) (*Stat, error) {
	type result struct {
		stat *Stat
		err  error
	}
	resCh := make(chan result, 1)
	if err := c.Set(path, data, version, func(stat *Stat, err error) { resCh <- result{stat, err} }); err != nil {
		return nil, err
	}
	select {
	case r := <-resCh:
		return r.stat, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CreateCallback receives the result of Create.
type CreateCallback func(path string, err error)

// Create asynchronously creates a node (spec.md §6's "Create" op).
func (c *Client) Create(path string, data []byte, acl []ACL, flags CreateFlag, cb CreateCallback) error {
	body, err := wire.Marshal(&wire.CreateRequest{Path: path, Data: data, Acl: acl, Flags: flags})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpCreate, body, session.KindString, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb("", callErr)
			return
		}
		var resp wire.CreateResponse
		if _, err := wire.Unmarshal(respBody, &resp); err != nil {
			cb("", zkerr.ErrBadArguments)
			return
		}
		cb(resp.Path, nil)
	})
}

// CreateSync is the blocking wrapper over Create.
func (c *Client) CreateSync(ctx context.Context, path string, data []byte, acl []ACL, flags CreateFlag) (string, error) {
	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	if err := c.Create(path, data, acl, flags, func(p string, err error) { done <- result{p, err} }); err != nil {
		return "", err
	}
	select {
	case r := <-done:
		return r.path, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// VoidCallback receives the result of an op with no payload beyond
// success/failure (spec.md §3's Void completion kind).
type VoidCallback func(err error)

// Delete asynchronously removes a node (spec.md §6's "Delete" op).
func (c *Client) Delete(path string, version int32, cb VoidCallback) error {
	body, err := wire.Marshal(&wire.DeleteRequest{Path: path, Version: version})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpDelete, body, session.KindVoid, func(_ []byte, _ int64, callErr error) {
		cb(callErr)
	})
}

// DeleteSync is the blocking wrapper over Delete.
func (c *Client) DeleteSync(ctx context.Context, path string, version int32) error {
	done := make(chan error, 1)
	if err := c.Delete(path, version, func(err error) { done <- err }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Exists asynchronously checks whether a node exists (spec.md §6's
// "Exists" op). A callback error of zkerr.ErrNoNode with a nil stat
// means the node does not exist; any other error is a real failure.
func (c *Client) Exists(path string, watch bool, cb StatCallback) error {
	body, err := wire.Marshal(&wire.ExistsRequest{Path: path, Watch: boolToWatch(watch)})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpExists, body, session.KindStat, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb(nil, callErr)
			return
		}
		var resp wire.ExistsResponse
		if _, err := wire.Unmarshal(respBody, &resp); err != nil {
			cb(nil, zkerr.ErrBadArguments)
			return
		}
		cb(&resp.Stat, nil)
	})
}

// ExistsSync is the blocking wrapper over Exists.
func (c *Client) ExistsSync(ctx context.Context, path string, watch bool) (*Stat, error) {
	type result struct {
		stat *Stat
		err  error
	}
	done := make(chan result, 1)
	if err := c.Exists(path, watch, func(stat *Stat, err error) { done <- result{stat, err} }); err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		return r.stat, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ChildrenCallback receives the result of GetChildren.
type ChildrenCallback func(children []string, stat *Stat, err error)

// GetChildren asynchronously lists a node's children (spec.md §6's
// "GetChildren" op — wired to the GetChildren2 opcode, which also
// returns the parent's Stat, matching real coordination-service
// servers' preference for GetChildren2 over the legacy GetChildren).
func (c *Client) GetChildren(path string, watch bool, cb ChildrenCallback) error {
	body, err := wire.Marshal(&wire.GetChildren2Request{Path: path, Watch: boolToWatch(watch)})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpGetChildren2, body, session.KindStringList, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb(nil, nil, callErr)
			return
		}
		var resp wire.GetChildren2Response
		if _, err := wire.Unmarshal(respBody, &resp); err != nil {
			cb(nil, nil, zkerr.ErrBadArguments)
			return
		}
		cb(resp.Children, &resp.Stat, nil)
	})
}

// GetChildrenSync is the blocking wrapper over GetChildren.
func (c *Client) GetChildrenSync(ctx context.Context, path string, watch bool) ([]string, *Stat, error) {
	type result struct {
		children []string
		stat     *Stat
		err      error
	}
	done := make(chan result, 1)
	if err := c.GetChildren(path, watch, func(ch []string, st *Stat, err error) { done <- result{ch, st, err} }); err != nil {
		return nil, nil, err
	}
	select {
	case r := <-done:
		return r.children, r.stat, r.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// ACLCallback receives the result of GetACL.
type ACLCallback func(acl []ACL, stat *Stat, err error)

// GetACL asynchronously fetches a node's ACL (spec.md §6's "GetACL" op).
func (c *Client) GetACL(path string, cb ACLCallback) error {
	body, err := wire.Marshal(&wire.GetACLRequest{Path: path})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpGetACL, body, session.KindAclList, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb(nil, nil, callErr)
			return
		}
		var resp wire.GetACLResponse
		if _, err := wire.Unmarshal(respBody, &resp); err != nil {
			cb(nil, nil, zkerr.ErrBadArguments)
			return
		}
		cb(resp.Acl, &resp.Stat, nil)
	})
}

// GetACLSync is the blocking wrapper over GetACL.
func (c *Client) GetACLSync(ctx context.Context, path string) ([]ACL, *Stat, error) {
	type result struct {
		acl  []ACL
		stat *Stat
		err  error
	}
	done := make(chan result, 1)
	if err := c.GetACL(path, func(acl []ACL, st *Stat, err error) { done <- result{acl, st, err} }); err != nil {
		return nil, nil, err
	}
	select {
	case r := <-done:
		return r.acl, r.stat, r.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// SetACL asynchronously replaces a node's ACL (spec.md §6's "SetACL" op).
func (c *Client) SetACL(path string, acl []ACL, version int32, cb StatCallback) error {
	body, err := wire.Marshal(&wire.SetACLRequest{Path: path, Acl: acl, Version: version})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpSetACL, body, session.KindStat, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb(nil, callErr)
			return
		}
		var resp wire.SetACLResponse
		if _, err := wire.Unmarshal(respBody, &resp); err != nil {
			cb(nil, zkerr.ErrBadArguments)
			return
		}
		cb(&resp.Stat, nil)
	})
}

// SetACLSync is the blocking wrapper over SetACL.
func (c *Client) SetACLSync(ctx context.Context, path string, acl []ACL, version int32) (*Stat, error) {
	type result struct {
		stat *Stat
		err  error
	}
	done := make(chan result, 1)
	if err := c.SetACL(path, acl, version, func(stat *Stat, err error) { done <- result{stat, err} }); err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		return r.stat, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SyncCallback receives the result of Sync.
type SyncCallback func(path string, err error)

// Sync asynchronously flushes the leader's view for path to the
// server this session is attached to before any subsequent read on
// this session observes it (spec.md §6's "Sync" op).
func (c *Client) Sync(path string, cb SyncCallback) error {
	body, err := wire.Marshal(&wire.SyncRequest{Path: path})
	if err != nil {
		return zkerr.ErrBadArguments
	}
	return c.sess.Call(wire.OpSync, body, session.KindString, func(respBody []byte, _ int64, callErr error) {
		if callErr != nil {
			cb("", callErr)
			return
		}
		var resp wire.SyncResponse
		if _, err := wire.Unmarshal(respBody, &resp); err != nil {
			cb("", zkerr.ErrBadArguments)
			return
		}
		cb(resp.Path, nil)
	})
}

// SyncSync is the blocking wrapper over Sync (named per the async/sync
// pairing convention the rest of this file follows, despite the
// doubled name).
func (c *Client) SyncSync(ctx context.Context, path string) (string, error) {
	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	if err := c.Sync(path, func(p string, err error) { done <- result{p, err} }); err != nil {
		return "", err
	}
	select {
	case r := <-done:
		return r.path, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// AddAuth registers a credential under scheme, enqueued at the head of
// the send queue ahead of any already-queued application request
// (spec.md §4.7, §6's "AddAuth" op). A credential is not re-sent after
// a reconnect once its reply has arrived or a connection loss has
// failed it.
func (c *Client) AddAuth(scheme string, cred []byte, cb VoidCallback) {
	c.sess.AddAuth(scheme, cred, func(err error) {
		if cb != nil {
			cb(err)
		}
	})
}

// AddAuthSync is the blocking wrapper over AddAuth.
func (c *Client) AddAuthSync(ctx context.Context, scheme string, cred []byte) error {
	done := make(chan error, 1)
	c.AddAuth(scheme, cred, func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

