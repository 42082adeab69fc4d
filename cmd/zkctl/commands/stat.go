package commands

import (
	"fmt"

	"github.com/marmos91/zkgo/internal/cli/output"
	"github.com/marmos91/zkgo/pkg/zk"
)

// statTable renders a *zk.Stat as a key/value table.
func statTable(s *zk.Stat) output.TableRenderer {
	t := output.NewTableData("FIELD", "VALUE")
	if s == nil {
		return t
	}
	t.AddRow("czxid", fmt.Sprintf("%d", s.Czxid))
	t.AddRow("mzxid", fmt.Sprintf("%d", s.Mzxid))
	t.AddRow("ctime", fmt.Sprintf("%d", s.Ctime))
	t.AddRow("mtime", fmt.Sprintf("%d", s.Mtime))
	t.AddRow("version", fmt.Sprintf("%d", s.Version))
	t.AddRow("cversion", fmt.Sprintf("%d", s.Cversion))
	t.AddRow("aversion", fmt.Sprintf("%d", s.Aversion))
	t.AddRow("ephemeralOwner", fmt.Sprintf("%d", s.EphemeralOwner))
	t.AddRow("dataLength", fmt.Sprintf("%d", s.DataLength))
	t.AddRow("numChildren", fmt.Sprintf("%d", s.NumChildren))
	t.AddRow("pzxid", fmt.Sprintf("%d", s.Pzxid))
	return t
}

// aclTable renders a []zk.ACL as a table.
func aclTable(acl []zk.ACL) output.TableRenderer {
	t := output.NewTableData("SCHEME", "ID", "PERMS")
	for _, a := range acl {
		t.AddRow(a.ID.Scheme, a.ID.ID, permString(a.Perms))
	}
	return t
}

func permString(perms int32) string {
	s := ""
	if perms&zk.PermRead != 0 {
		s += "r"
	}
	if perms&zk.PermWrite != 0 {
		s += "w"
	}
	if perms&zk.PermCreate != 0 {
		s += "c"
	}
	if perms&zk.PermDelete != 0 {
		s += "d"
	}
	if perms&zk.PermAdmin != 0 {
		s += "a"
	}
	if s == "" {
		return "-"
	}
	return s
}
