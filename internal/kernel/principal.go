package kernel

import (
	"sync"

	"github.com/google/uuid"
)

// PKR (Principal Key Reference) is an opaque handle a subsystem holds to
// identify itself to the kernel's access-control gate. It carries no
// meaning outside the kernel that issued it (spec.md §6) — wrapping a
// uuid.UUID gives it comparable, zero-value-safe identity without
// exposing a sequence an outside caller could guess or forge, the same
// property the teacher's Capability.ID sequence lacked.
type PKR struct {
	id uuid.UUID
}

// NilPKR is the zero value, never issued by newPKR.
var NilPKR = PKR{}

func newPKR() PKR { return PKR{id: uuid.New()} }

func (p PKR) String() string { return p.id.String() }

// IsNil reports whether p is the unissued zero value.
func (p PKR) IsNil() bool { return p.id == uuid.Nil }

// EntityKind classifies a principal for the access-control facet's
// default policy decisions (spec.md §6).
type EntityKind int

const (
	EntityKernel EntityKind = iota
	EntityTopLevel
	EntityChild
	EntityFriend
	EntityResource
)

func (k EntityKind) String() string {
	switch k {
	case EntityKernel:
		return "kernel"
	case EntityTopLevel:
		return "topLevel"
	case EntityChild:
		return "child"
	case EntityFriend:
		return "friend"
	case EntityResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Rights is a bitmask of permissions a principal can hold against another
// principal's namespace, carried over from the teacher's capability model
// (kernel_types.go's Rights) and repurposed from filesystem-style
// read/write/exec bits to kernel send semantics.
type Rights uint64

const (
	RightSend Rights = 1 << iota
	RightSubscribe
	RightAdmin
)

// Principal is one registered identity in the kernel's access-control
// namespace: a subsystem, a friend grant, or a bare resource. Identity is
// the capability a subsystem actually holds and uses to call
// sendProtected; Principal is the kernel-side record backing it.
type Principal struct {
	PKR       PKR
	Path      string
	Kind      EntityKind
	Profile   SecurityProfile
	Parent    PKR
	hasParent bool
}

// Identity is what a built subsystem is handed back: its own PKR plus the
// AccessControl facet needed to exercise it. Subsystems never see the
// kernel's internal Principal table directly (spec.md §6's "sendProtected
// is the only gate" invariant).
type Identity struct {
	PKR    PKR
	Path   string
	access *AccessControl
}

// SendProtected routes a message through the kernel's access-control
// check before dispatch, the sole point where two subsystems' messages
// may cross (spec.md §6).
func (id Identity) SendProtected(target string, msg *Message, opts SendOptions) (Result, error) {
	return id.access.sendProtected(id.PKR, target, msg, opts)
}

// AccessControl is the kernel child subsystem that owns the principal
// table and the grant graph. It is the access-control facet's backing
// value (spec.md §5's kernel bootstrap subsystems).
type AccessControl struct {
	mu sync.RWMutex

	principals map[PKR]*Principal
	byPath     map[string]PKR

	// grants[holder][target] is the rights holder has against target —
	// the same reverse-revocation shape as the teacher's CapIndex, kept
	// so tearing down a principal can walk both directions in O(1) per
	// neighbor instead of scanning the whole table.
	grants        map[PKR]map[PKR]Rights
	reverseGrants map[PKR]map[PKR]bool

	profiles *ProfileRegistry
	router   Dispatcher
}

// Dispatcher is the minimal surface AccessControl needs from the message
// system to actually deliver a permitted send — implemented by
// *MessageSystem.
type Dispatcher interface {
	dispatch(msg *Message, opts SendOptions) (Result, error)
}

// NewAccessControl constructs an empty access-control table bound to
// router for dispatch once a send clears policy, and to profiles for the
// per-EntityKind default rights spec.md §1's r/rw/rwg lattice assigns at
// registration time.
func NewAccessControl(router Dispatcher, profiles *ProfileRegistry) *AccessControl {
	return &AccessControl{
		principals:    make(map[PKR]*Principal),
		byPath:        make(map[string]PKR),
		grants:        make(map[PKR]map[PKR]Rights),
		reverseGrants: make(map[PKR]map[PKR]bool),
		profiles:      profiles,
		router:        router,
	}
}

// Register issues a fresh PKR for path under kind, with an optional
// parent principal. The new principal's security profile is kind's
// ProfileRegistry default (spec.md §1's r/rw/rwg lattice): a parent/child
// pair is granted exactly the rights that profile carries in both
// directions, so an EntityFriend/EntityResource registration (profile "r",
// RightSubscribe only) never ends up with the RightSend a plain
// EntityChild gets, mirroring the teacher's SpawnChild auto-grant but
// scoped by profile instead of hardcoded.
func (ac *AccessControl) Register(path string, kind EntityKind, parent PKR) Identity {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	pkr := newPKR()
	profile := ac.profiles.DefaultFor(kind)
	p := &Principal{PKR: pkr, Path: path, Kind: kind, Profile: profile}
	if !parent.IsNil() {
		p.Parent = parent
		p.hasParent = true
	}
	ac.principals[pkr] = p
	ac.byPath[path] = pkr

	if p.hasParent {
		ac.grantLocked(parent, pkr, profile.Rights)
		ac.grantLocked(pkr, parent, profile.Rights)
	}

	return Identity{PKR: pkr, Path: path, access: ac}
}

// Grant gives holder the named rights against target. Used for friend
// grants between subsystems that are not in a parent/child relationship.
func (ac *AccessControl) Grant(holder, target PKR, rights Rights) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.grantLocked(holder, target, rights)
}

func (ac *AccessControl) grantLocked(holder, target PKR, rights Rights) {
	if ac.grants[holder] == nil {
		ac.grants[holder] = make(map[PKR]Rights)
	}
	ac.grants[holder][target] |= rights

	if ac.reverseGrants[target] == nil {
		ac.reverseGrants[target] = make(map[PKR]bool)
	}
	ac.reverseGrants[target][holder] = true
}

// Revoke removes a principal and every grant referencing it, in either
// direction, exactly as the teacher's cleanupActor walked CapIndex.
func (ac *AccessControl) Revoke(pkr PKR) {
	ac.mu.Lock()
	defer ac.mu.Unlock()

	p, ok := ac.principals[pkr]
	if !ok {
		return
	}

	for target := range ac.grants[pkr] {
		delete(ac.reverseGrants[target], pkr)
	}
	delete(ac.grants, pkr)

	for holder := range ac.reverseGrants[pkr] {
		delete(ac.grants[holder], pkr)
	}
	delete(ac.reverseGrants, pkr)

	delete(ac.principals, pkr)
	delete(ac.byPath, p.Path)
}

func (ac *AccessControl) hasRight(holder, target PKR, want Rights) bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if holder == target {
		return true
	}
	return ac.grants[holder][target]&want == want
}

// sendProtected is the kernel-side half of Identity.SendProtected: resolve
// the target path to its owning principal, check rights, then hand the
// message to the dispatcher (spec.md §6).
func (ac *AccessControl) sendProtected(from PKR, targetPath string, msg *Message, opts SendOptions) (Result, error) {
	ac.mu.RLock()
	targetPKR, ok := ac.resolveLocked(targetPath)
	ac.mu.RUnlock()

	if !ok {
		err := NewError(KindAuth, "accesscontrol.sendprotected", "no-such-principal: "+targetPath)
		return failResult(msg.ID, err), err
	}

	if !ac.hasRight(from, targetPKR, RightSend) {
		err := NewError(KindAuth, "accesscontrol.sendprotected", "auth-failed: "+targetPath)
		return failResult(msg.ID, err), err
	}

	return ac.router.dispatch(msg, opts)
}

// resolveLocked finds the principal owning the longest registered path
// prefix of target — subsystems register a path once but may route to any
// descendant segment beneath it.
func (ac *AccessControl) resolveLocked(target string) (PKR, bool) {
	if pkr, ok := ac.byPath[target]; ok {
		return pkr, true
	}
	best := -1
	var bestPKR PKR
	for path, pkr := range ac.byPath {
		if len(path) > best && hasPathPrefix(target, path) {
			best = len(path)
			bestPKR = pkr
		}
	}
	return bestPKR, best >= 0
}

func hasPathPrefix(target, prefix string) bool {
	if len(target) < len(prefix) {
		return false
	}
	if target[:len(prefix)] != prefix {
		return false
	}
	return len(target) == len(prefix) || target[len(prefix)] == '/'
}
