package ports

import "context"

// ChatPort is the chat output boundary. The core only ever emits plain text.
type ChatPort interface {
	// SayRoom posts text to a room visible to everyone in it.
	SayRoom(ctx context.Context, roomID, text string) error

	// SayUser sends text privately to a single user.
	SayUser(ctx context.Context, userID, text string) error
}

// RoomDirectory answers chat-membership questions for direct-message routing.
type RoomDirectory interface {
	// Participates reports whether userID is currently present in roomID.
	Participates(ctx context.Context, roomID, userID string) (bool, error)
}
