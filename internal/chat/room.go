package chat

import (
	"fmt"
	"strings"
)

// A room key is "<a>_<b>": the two participant usernames joined by an
// underscore. It only groups live connections; it is never stored.
// Usernames are alphanumeric (enforced at registration), so the separator
// is unambiguous.
const roomSeparator = "_"

// RoomKey builds the canonical key for a participant pair. Participants are
// sorted so both sides derive the same key no matter who initiates.
func RoomKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + roomSeparator + b
}

// Participants splits a room key back into its two usernames.
func Participants(room string) (string, string, error) {
	parts := strings.Split(room, roomSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed room key %q", room)
	}
	if parts[0] == parts[1] {
		return "", "", fmt.Errorf("room key %q names the same user twice", room)
	}
	return parts[0], parts[1], nil
}

// Counterpart returns the other participant encoded in the room key.
func Counterpart(room, sender string) (string, error) {
	a, b, err := Participants(room)
	if err != nil {
		return "", err
	}
	switch sender {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", fmt.Errorf("user %q is not a participant of room %q", sender, room)
}

// IsParticipant reports whether username is one of the two users encoded in
// the room key. Joins are rejected unless this holds.
func IsParticipant(room, username string) bool {
	a, b, err := Participants(room)
	if err != nil {
		return false
	}
	return username == a || username == b
}
