package domain

import "context"

// Identity is the account a connection authenticated as. Key is the
// uniqueness anchor inside a room, Name is what peers see.
type Identity struct {
	Key  string `json:"-"`
	Name string `json:"identityName"`
}

type RoomKey string

// NewRoomKey joins a match id and a team id the way clients expect,
// e.g. "M1-100".
func NewRoomKey(matchID, teamID string) RoomKey {
	return RoomKey(matchID + "-" + teamID)
}

// Member is a room occupant. Conn is the live handle used to deliver
// notifications; it is never serialized.
type Member struct {
	ConnectionID string
	Identity     Identity
	Conn         Connection
}

type Participant struct {
	Identity Identity
	TeamID   string
}

type Match struct {
	ID           string
	Participants []Participant
}

// Team returns the participants sharing teamID, in roster order.
func (m *Match) Team(teamID string) []Participant {
	var team []Participant
	for _, p := range m.Participants {
		if p.TeamID == teamID {
			team = append(team, p)
		}
	}
	return team
}

// TeamOf finds the team of the participant whose identity key matches.
func (m *Match) TeamOf(id Identity) (string, bool) {
	for _, p := range m.Participants {
		if p.Identity.Key == id.Key {
			return p.TeamID, true
		}
	}
	return "", false
}

// Connection is a transport session. Context is cancelled once the
// connection is gone; Send must not block.
type Connection interface {
	ID() string
	Identity() Identity
	Context() context.Context
	State() State
	Transition(to State) error
	Send(data []byte) error
	Close() error
}

// Directory resolves credentials and live matches. Both calls may block on
// I/O. A nil result with a nil error means "not found".
type Directory interface {
	ResolveIdentity(ctx context.Context, credential string) (*Identity, error)
	CurrentMatch(ctx context.Context, id Identity) (*Match, error)
}

type Registry interface {
	Register(conn Connection)
	Unregister(id string) []Departure
	Join(id string, key RoomKey) ([]Member, error)
	Leave(id string, key RoomKey) ([]Member, bool)
	RoomsOf(id string) []RoomKey
	MembersOf(key RoomKey) []Member
	Peer(senderID, targetID string) (Connection, bool)
	Stats() (rooms, clients int)
}

// Departure describes a room a connection was removed from and who is left.
type Departure struct {
	Room      RoomKey
	Remaining []Member
}

type MessageHandler interface {
	Handle(conn Connection, data []byte)
}
