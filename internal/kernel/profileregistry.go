package kernel

// SecurityProfile is one named point in the r/rw/rwg lattice spec.md §1's
// Non-goals names as the boundary this kernel does not exceed: read-only,
// read-write, or read-write-grant (able to extend its own rights to
// others it registers).
type SecurityProfile struct {
	Name     string
	Rights   Rights
	CanGrant bool
}

var (
	ProfileReadOnly       = SecurityProfile{Name: "r", Rights: RightSubscribe}
	ProfileReadWrite      = SecurityProfile{Name: "rw", Rights: RightSend | RightSubscribe}
	ProfileReadWriteGrant = SecurityProfile{Name: "rwg", Rights: RightSend | RightSubscribe | RightAdmin, CanGrant: true}
)

// ProfileRegistry is the `profile-registry` kernel child subsystem's
// backing value: named security profiles a subsystem can be registered
// under, and the default profile assigned per entity kind absent an
// explicit choice (spec.md §1's r/rw/rwg lattice).
type ProfileRegistry struct {
	profiles map[string]SecurityProfile
	defaults map[EntityKind]string
}

// NewProfileRegistry installs the three built-in profiles with sensible
// per-entity-kind defaults.
func NewProfileRegistry() *ProfileRegistry {
	pr := &ProfileRegistry{
		profiles: make(map[string]SecurityProfile),
		defaults: make(map[EntityKind]string),
	}
	for _, p := range []SecurityProfile{ProfileReadOnly, ProfileReadWrite, ProfileReadWriteGrant} {
		pr.profiles[p.Name] = p
	}
	pr.defaults[EntityKernel] = "rwg"
	pr.defaults[EntityTopLevel] = "rw"
	pr.defaults[EntityChild] = "rw"
	pr.defaults[EntityFriend] = "r"
	pr.defaults[EntityResource] = "r"
	return pr
}

// Register adds or replaces a named profile.
func (pr *ProfileRegistry) Register(profile SecurityProfile) {
	pr.profiles[profile.Name] = profile
}

// Get returns the named profile, if registered.
func (pr *ProfileRegistry) Get(name string) (SecurityProfile, bool) {
	p, ok := pr.profiles[name]
	return p, ok
}

// DefaultFor returns the default profile for an entity kind.
func (pr *ProfileRegistry) DefaultFor(kind EntityKind) SecurityProfile {
	name := pr.defaults[kind]
	return pr.profiles[name]
}
