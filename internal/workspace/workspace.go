// Package workspace holds the Workspace record every jamvcs installation
// root carries: which role (server or client) this directory plays, and
// that role's configuration.
package workspace

import (
	"net"

	"github.com/rcowham/jamvcs/internal/textutil"
)

// Type discriminates a Workspace between its two roles.
type Type string

const (
	Unknown Type = "Unknown"
	Server  Type = "Server"
	Client  Type = "Client"
)

// Workspace is the persisted root record. Exactly one of Client/Server is
// populated, matching WorkspaceType.
type Workspace struct {
	WorkspaceType Type             `yaml:"workspace_type"`
	Client        *ClientWorkspace `yaml:"client,omitempty"`
	Server        *ServerWorkspace `yaml:"server,omitempty"`
}

// RelPath implements store.Document.
func (w *Workspace) RelPath() string { return "workspace.yaml" }

// NewWorkspace returns the zero-value Workspace store.Load falls back to
// on a missing/corrupt workspace.yaml.
func NewWorkspace() *Workspace {
	return &Workspace{WorkspaceType: Unknown}
}

// ClientWorkspace is the per-client half of Workspace.
type ClientWorkspace struct {
	WorkspaceName string `yaml:"workspace_name"`
	TargetAddr    string `yaml:"target_addr"`
	LoginCode     string `yaml:"login_code"`
	UUID          string `yaml:"uuid"`
	Debug         bool   `yaml:"debug"`
}

// ResolveTargetAddr parses TargetAddr as a TCP address.
func (c *ClientWorkspace) ResolveTargetAddr() (*net.TCPAddr, error) {
	return net.ResolveTCPAddr("tcp", c.TargetAddr)
}

// ServerWorkspace is the per-server half of Workspace: the membership
// table and its two derived inverse indices.
type ServerWorkspace struct {
	WorkspaceName      string             `yaml:"workspace_name"`
	Members            map[string]*Member `yaml:"members"`
	MemberUUIDs        map[string]string  `yaml:"member_uuids"`
	LoginCodeMap       map[string]string  `yaml:"login_code_map"`
	EnableDebugLogger  bool               `yaml:"enable_debug_logger"`
}

// NewServerWorkspace builds an empty ServerWorkspace ready for AddMember.
func NewServerWorkspace(name string) *ServerWorkspace {
	return &ServerWorkspace{
		WorkspaceName: textutil.ProcessIDText(name),
		Members:       map[string]*Member{},
		MemberUUIDs:   map[string]string{},
		LoginCodeMap:  map[string]string{},
	}
}

// AddMember registers a new member under uuid with the given login code,
// rebuilding MemberUUIDs so it stays consistent with Members and adding
// the login code to LoginCodeMap.
func (s *ServerWorkspace) AddMember(uuid, loginCode string, member *Member) {
	member.MemberName = textutil.ProcessIDText(member.MemberName)
	s.Members[uuid] = member
	s.rebuildIndices()
	s.LoginCodeMap[loginCode] = uuid
}

// rebuildIndices regenerates MemberUUIDs from Members -- Members is the
// only authoritative map; MemberUUIDs is a derived inverse view and must
// never be trusted from disk on its own (see design note on derived
// indices).
func (s *ServerWorkspace) rebuildIndices() {
	s.MemberUUIDs = make(map[string]string, len(s.Members))
	for uuid, m := range s.Members {
		s.MemberUUIDs[m.MemberName] = uuid
	}
}

// MemberByLoginCode resolves a login code to its Member via the UUID
// indirection, returning (uuid, member, ok).
func (s *ServerWorkspace) MemberByLoginCode(code string) (string, *Member, bool) {
	uuid, ok := s.LoginCodeMap[code]
	if !ok {
		return "", nil, false
	}
	member, ok := s.Members[uuid]
	return uuid, member, ok
}
