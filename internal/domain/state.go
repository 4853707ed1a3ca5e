package domain

// User is a chat identity as delivered by the host transport.
type User struct {
	ID   string // stable identity; ToID(Name) when the transport has none
	Name string
}

// NewUser builds a User whose identity is derived from the display name.
func NewUser(name string) User {
	return User{ID: ToID(name), Name: name}
}

// Player holds the per-game state of a participant.
type Player struct {
	ID         string
	Name       string
	Eliminated bool
}

// NewPlayer creates a player record for a user.
func NewPlayer(u User) *Player {
	return &Player{ID: u.ID, Name: u.Name}
}
