package core

import (
	"strconv"
	"strings"

	"github.com/vuuvv/errors"
)

const (
	PathPacketName  = "packet_name"
	PathCommandID   = "command_id"
	PathNamespace   = "namespace"
	PathPacked      = "packed"
	PathHeaderGuard = "header_guard"
	PathFields      = "fields"

	AttrName    = "name"
	AttrType    = "type"
	AttrComment = "comment"
)

// Path 指向配置中的一个叶子节点, 例如 packet_name 或 fields.2.name
type Path struct {
	Name  string
	Index int
	Attr  string
}

func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, ".")
	switch parts[0] {
	case PathPacketName, PathCommandID, PathNamespace, PathPacked, PathHeaderGuard:
		if len(parts) != 1 {
			return Path{}, errors.Errorf("invalid path '%s'", s)
		}
		return Path{Name: parts[0], Index: -1}, nil
	case PathFields:
		if len(parts) != 3 {
			return Path{}, errors.Errorf("invalid path '%s', expect fields.<index>.<attr>", s)
		}
		index, err := strconv.Atoi(parts[1])
		if err != nil || index < 0 {
			return Path{}, errors.Errorf("invalid field index in path '%s'", s)
		}
		switch parts[2] {
		case AttrName, AttrType, AttrComment:
		default:
			return Path{}, errors.Errorf("unknown field attribute in path '%s'", s)
		}
		return Path{Name: PathFields, Index: index, Attr: parts[2]}, nil
	}
	return Path{}, errors.Errorf("unknown path '%s'", s)
}

func FieldPath(index int, attr string) Path {
	return Path{Name: PathFields, Index: index, Attr: attr}
}

func TopPath(name string) Path {
	return Path{Name: name, Index: -1}
}

func (p Path) IsField() bool {
	return p.Name == PathFields
}

func (p Path) String() string {
	if p.IsField() {
		return PathFields + "." + strconv.Itoa(p.Index) + "." + p.Attr
	}
	return p.Name
}

// Get 读取 path 指向的值, namespace/header_guard 未设置时返回 nil
func (c *Configuration) Get(p Path) (any, bool) {
	switch p.Name {
	case PathPacketName:
		return c.PacketName, true
	case PathCommandID:
		return c.CommandID, true
	case PathPacked:
		return c.Packed, true
	case PathNamespace:
		if c.Namespace == nil {
			return nil, true
		}
		return *c.Namespace, true
	case PathHeaderGuard:
		if c.HeaderGuard == nil {
			return nil, true
		}
		return *c.HeaderGuard, true
	case PathFields:
		if p.Index < 0 || p.Index >= len(c.Fields) {
			return nil, false
		}
		f := c.Fields[p.Index]
		switch p.Attr {
		case AttrName:
			return f.Name, true
		case AttrType:
			return f.Type, true
		case AttrComment:
			return f.Comment, true
		}
	}
	return nil, false
}
