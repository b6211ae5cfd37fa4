package aha

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/xmltree"
)

// NoSession is the sentinel session id meaning "not authenticated".
const NoSession = "0000000000000000"

// PermissionKind is an access area the gateway grants rights for.
type PermissionKind string

// Permission kinds as reported in SessionInfo/Rights.
const (
	BoxAdmin PermissionKind = "BoxAdmin"
	HomeAuto PermissionKind = "HomeAuto"
	NAS      PermissionKind = "NAS"
	App      PermissionKind = "App"
	Phone    PermissionKind = "Phone"
)

func parsePermissionKind(s string) (PermissionKind, bool) {
	switch k := PermissionKind(s); k {
	case BoxAdmin, HomeAuto, NAS, App, Phone:
		return k, true
	default:
		return "", false
	}
}

// PermissionLevel is the access level of a right.
type PermissionLevel int

// Permission levels as reported in SessionInfo/Rights.
const (
	Read      PermissionLevel = 1
	ReadWrite PermissionLevel = 2
)

func parsePermissionLevel(s string) (PermissionLevel, bool) {
	switch s {
	case "1":
		return Read, true
	case "2":
		return ReadWrite, true
	default:
		return 0, false
	}
}

func (l PermissionLevel) String() string {
	switch l {
	case Read:
		return "read"
	case ReadWrite:
		return "readwrite"
	default:
		return "unknown"
	}
}

// Permission is one right granted to a session.
type Permission struct {
	Kind  PermissionKind
	Level PermissionLevel
}

// SessionInfo is the answer of /login_sid.lua.
type SessionInfo struct {
	SID         string
	Challenge   string
	BlockTime   uint32
	Permissions []Permission
}

// Authenticated reports whether SID is a real session id.
func (s *SessionInfo) Authenticated() bool {
	return s.SID != NoSession
}

// Has reports whether the session holds a right of the given kind.
func (s *SessionInfo) Has(kind PermissionKind) bool {
	for _, p := range s.Permissions {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// ParseSessionInfo reads a SessionInfo document.
//
// Rights are listed as alternating kind and level elements. Pairs whose
// kind or level is not recognised are skipped.
func ParseSessionInfo(r io.Reader) (*SessionInfo, error) {
	root, err := xmltree.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("decoding session info: %w", err)
	}
	if root.Name != "SessionInfo" {
		return nil, fmt.Errorf("decoding session info: unexpected root element <%s>", root.Name)
	}

	info := &SessionInfo{}
	if info.SID, err = root.ChildText("SID"); err != nil {
		return nil, err
	}
	if info.Challenge, err = root.ChildText("Challenge"); err != nil {
		return nil, err
	}

	blockTime, err := root.ChildText("BlockTime")
	if err != nil {
		return nil, err
	}
	bt, err := strconv.ParseUint(blockTime, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("decoding session info: BlockTime %q: %w", blockTime, err)
	}
	info.BlockTime = uint32(bt)

	rights, err := root.Child("Rights")
	if err != nil {
		return nil, err
	}
	info.Permissions = parseRights(rights.Children())

	return info, nil
}

func parseRights(nodes []*xmltree.Node) []Permission {
	var perms []Permission
	for i := 0; i+1 < len(nodes); i += 2 {
		kind, ok := parsePermissionKind(nodes[i].Text())
		if !ok {
			continue
		}
		level, ok := parsePermissionLevel(nodes[i+1].Text())
		if !ok {
			continue
		}
		perms = append(perms, Permission{Kind: kind, Level: level})
	}
	return perms
}
