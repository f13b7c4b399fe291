package workspace

// MemberDuty is a role a Member can hold. Duties are combinable: a member
// may carry any subset of these at once.
type MemberDuty string

const (
	Debugger  MemberDuty = "Debugger"
	Leader    MemberDuty = "Leader"
	Developer MemberDuty = "Developer"
	Creator   MemberDuty = "Creator"
	Producer  MemberDuty = "Producer"
)

// Member is a single team member's identity: a display name plus the set
// of duties gating which commands they may execute remotely.
type Member struct {
	MemberName   string       `yaml:"name"`
	MemberDuties []MemberDuty `yaml:"duty"`
}

// NewMember builds a Member with no duties.
func NewMember(name string) *Member {
	return &Member{MemberName: name, MemberDuties: []MemberDuty{}}
}

// HasDuty reports whether the member carries the given duty.
func (m *Member) HasDuty(duty MemberDuty) bool {
	for _, d := range m.MemberDuties {
		if d == duty {
			return true
		}
	}
	return false
}

// AddDuty adds duty if not already present.
func (m *Member) AddDuty(duty MemberDuty) {
	if !m.HasDuty(duty) {
		m.MemberDuties = append(m.MemberDuties, duty)
	}
}

// RemoveDuty removes duty if present.
func (m *Member) RemoveDuty(duty MemberDuty) {
	for i, d := range m.MemberDuties {
		if d == duty {
			m.MemberDuties = append(m.MemberDuties[:i], m.MemberDuties[i+1:]...)
			return
		}
	}
}
