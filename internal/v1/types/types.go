// Package types holds the wire-level domain model shared by every layer:
// emoji identifiers, room codes, users, and SDP sessions. All of these are
// plain values; the field names are the JSON contract with clients.
package types

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// UserID uniquely identifies a user for the lifetime of its room.
type UserID string

// CodeKey is the canonical, comparable form of a room code. It keys the
// room registry, so two codes with the same entry sequence must produce
// the same key no matter how they were decoded.
type CodeKey string

// Emoji is one emoji identified by its hex codepoint string, e.g. "1F600".
// Multi-codepoint sequences join their parts with "-". Equality is by ID.
type Emoji struct {
	ID string `json:"id"`
}

// String renders the actual glyph for log output. Ids that do not parse
// as hex codepoints fall back to the raw form.
func (e Emoji) String() string {
	var b strings.Builder
	for _, part := range strings.Split(e.ID, "-") {
		cp, err := strconv.ParseUint(part, 16, 32)
		if err != nil {
			return e.ID
		}
		b.WriteRune(rune(cp))
	}
	return b.String()
}

// CodeEntry wraps one emoji of a room code.
type CodeEntry struct {
	Emoji Emoji `json:"emoji"`
}

// Code is the ordered emoji sequence that names a room. Two codes are the
// same room iff their entries are element-wise equal in order.
type Code struct {
	Entries []CodeEntry `json:"entries"`
}

// Key returns the canonical registry key for the code. Entry ids are hex
// strings and never contain spaces, so joining on a space is unambiguous.
func (c Code) Key() CodeKey {
	ids := make([]string, len(c.Entries))
	for i, entry := range c.Entries {
		ids[i] = entry.Emoji.ID
	}
	return CodeKey(strings.Join(ids, " "))
}

// String renders the code's glyphs, used to prefix room log lines.
func (c Code) String() string {
	var b strings.Builder
	for _, entry := range c.Entries {
		b.WriteString(entry.Emoji.String())
	}
	return b.String()
}

// Avatar is the emoji identity a user wears inside a room. The room
// guarantees no two members share one. Emoji is embedded so the avatar can
// be compared and rendered directly; the tag keeps it nested on the wire.
type Avatar struct {
	Emoji `json:"emoji"`
}

// User is a room member: a server-minted id plus its avatar. Immutable
// after creation.
type User struct {
	ID     UserID `json:"id"`
	Avatar Avatar `json:"avatar"`
}

// Session carries an opaque WebRTC SDP blob. The server forwards it
// verbatim and never inspects it.
type Session struct {
	Description string `json:"description"`
}

// NewUserID mints a collision-resistant user id: 128 random bits, hex
// encoded to 32 characters.
func NewUserID() UserID {
	id := uuid.New()
	return UserID(hex.EncodeToString(id[:]))
}
