package rooms

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"oceancare/internal/domain"
	"oceancare/internal/model"
)

// Membership is the part of the socket manager the policy drives.
type Membership interface {
	JoinRoom(room string)
	LeaveRoom(room string)
	Connected() bool
}

// RoomFor returns the single room an identity belongs to.
func RoomFor(identity model.Identity) (string, error) {
	if err := identity.Validate(); err != nil {
		return "", err
	}
	role, _ := domain.ParseRole(string(identity.Role))
	switch role {
	case domain.RoleDoctor:
		return domain.RoomDoctor, nil
	case domain.RolePatient:
		return domain.PatientRoom(identity.ID), nil
	default:
		return "", fmt.Errorf("%w: role %q", domain.ErrInvalidIdentity, identity.Role)
	}
}

type State struct {
	Joined bool
	Room   string
}

func (s State) String() string {
	if !s.Joined {
		return "unjoined"
	}
	return "joined(" + s.Room + ")"
}

// Policy keeps the session in exactly the room implied by its identity. It
// is Unjoined until both a connection and an identity are present, and
// re-joins on every transition to connected.
type Policy struct {
	members Membership
	log     *zap.Logger

	mu        sync.Mutex
	identity  *model.Identity
	room      string // room requested from members, "" when none
	connected bool
}

func NewPolicy(members Membership, logger *zap.Logger) *Policy {
	return &Policy{
		members:   members,
		log:       logger,
		connected: members.Connected(),
	}
}

// SetIdentity switches the session identity; nil means logged out.
func (p *Policy) SetIdentity(identity *model.Identity) error {
	if identity != nil {
		if err := identity.Validate(); err != nil {
			return err
		}
		copied := *identity
		identity = &copied
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = identity
	p.reconcile()
	return nil
}

// HandleConnectivity is registered with the socket manager's state
// notifications.
func (p *Policy) HandleConnectivity(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = connected
	p.reconcile()
}

func (p *Policy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{Joined: p.connected && p.room != "", Room: p.room}
}

// Release leaves any held room; used on logout and teardown.
func (p *Policy) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = nil
	p.reconcile()
}

func (p *Policy) reconcile() {
	want := ""
	if p.identity != nil {
		room, err := RoomFor(*p.identity)
		if err != nil {
			p.log.Warn("no room for identity", zap.Error(err))
		} else {
			want = room
		}
	}

	if p.room != "" && p.room != want {
		p.members.LeaveRoom(p.room)
		p.log.Info("room membership released", zap.String("room", p.room))
		p.room = ""
	}
	if want == "" {
		return
	}
	p.room = want
	// Joins while disconnected are queued by the manager; joining again on
	// every connect makes the rejoin explicit.
	p.members.JoinRoom(want)
	if p.connected {
		p.log.Info("room membership active", zap.String("room", want))
	}
}
