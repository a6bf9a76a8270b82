// Package messages defines the JSON envelopes exchanged over a signaling
// socket. Every frame is one object tagged by its "type" field; Parse turns
// inbound frames into concrete variants and rejects anything malformed so
// the pumps can drop bad frames without guessing.
package messages

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"theatre/internal/v1/types"
)

// Wire values of the "type" tag, one per envelope variant.
const (
	TypeConnectRequest  = "connect-request"
	TypeConnectResponse = "connect-response"
	TypeConnected       = "connected"
	TypeDisconnected    = "disconnected"
	TypeOffer           = "offer"
	TypeAnswer          = "answer"
)

var validate = validator.New()

// Message is implemented by every envelope variant. Kind returns the wire
// value of the "type" tag.
type Message interface {
	Kind() string
}

// ConnectRequest opens the handshake: the client names the room it wants
// to join. Client to server only.
type ConnectRequest struct {
	Type string      `json:"type"`
	Code *types.Code `json:"code" validate:"required"`
}

func (*ConnectRequest) Kind() string { return TypeConnectRequest }

// ConnectResponse answers a successful handshake with the caller's new
// identity and a snapshot of everyone already in the room. OtherUsers is
// always a JSON array, never null.
type ConnectResponse struct {
	Type       string       `json:"type"`
	User       *types.User  `json:"user" validate:"required"`
	OtherUsers []types.User `json:"other_users"`
}

func (*ConnectResponse) Kind() string { return TypeConnectResponse }

// Connected tells existing members that a new user joined. The newcomer
// itself never receives one.
type Connected struct {
	Type string      `json:"type"`
	User *types.User `json:"user" validate:"required"`
}

func (*Connected) Kind() string { return TypeConnected }

// Disconnected tells remaining members that a user left. Unlike Connected
// it carries only the bare user id.
type Disconnected struct {
	Type string       `json:"type"`
	User types.UserID `json:"user" validate:"required"`
}

func (*Disconnected) Kind() string { return TypeDisconnected }

// Offer carries an SDP offer from one member to another. The server
// rewrites FromUser to the sender's authenticated id before relaying.
type Offer struct {
	Type     string         `json:"type"`
	FromUser types.UserID   `json:"from_user" validate:"required"`
	ToUser   types.UserID   `json:"to_user" validate:"required"`
	Session  *types.Session `json:"session" validate:"required"`
}

func (*Offer) Kind() string { return TypeOffer }

// Answer carries an SDP answer, with the same routing rules as Offer.
type Answer struct {
	Type     string         `json:"type"`
	FromUser types.UserID   `json:"from_user" validate:"required"`
	ToUser   types.UserID   `json:"to_user" validate:"required"`
	Session  *types.Session `json:"session" validate:"required"`
}

func (*Answer) Kind() string { return TypeAnswer }

// Parse decodes one wire frame into its concrete variant. It peeks the
// "type" tag, unmarshals the matching struct, and checks required fields.
// Unknown tags, malformed JSON, and missing fields all return an error.
func Parse(data []byte) (Message, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}

	var msg Message
	switch probe.Type {
	case TypeConnectRequest:
		msg = &ConnectRequest{}
	case TypeConnectResponse:
		msg = &ConnectResponse{}
	case TypeConnected:
		msg = &Connected{}
	case TypeDisconnected:
		msg = &Disconnected{}
	case TypeOffer:
		msg = &Offer{}
	case TypeAnswer:
		msg = &Answer{}
	default:
		return nil, fmt.Errorf("unknown message type %q", probe.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", probe.Type, err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("validating %s: %w", probe.Type, err)
	}
	return msg, nil
}

// NewConnectRequest builds a handshake request for the given room code.
func NewConnectRequest(code types.Code) *ConnectRequest {
	return &ConnectRequest{Type: TypeConnectRequest, Code: &code}
}

// NewConnectResponse builds the handshake reply. A nil others slice is
// normalized so it serializes as [] rather than null.
func NewConnectResponse(user types.User, others []types.User) *ConnectResponse {
	if others == nil {
		others = []types.User{}
	}
	return &ConnectResponse{Type: TypeConnectResponse, User: &user, OtherUsers: others}
}

// NewConnected builds the join notification for existing members.
func NewConnected(user types.User) *Connected {
	return &Connected{Type: TypeConnected, User: &user}
}

// NewDisconnected builds the leave notification for remaining members.
func NewDisconnected(id types.UserID) *Disconnected {
	return &Disconnected{Type: TypeDisconnected, User: id}
}

// NewOffer builds an offer envelope attributed to from.
func NewOffer(from, to types.UserID, session types.Session) *Offer {
	return &Offer{Type: TypeOffer, FromUser: from, ToUser: to, Session: &session}
}

// NewAnswer builds an answer envelope attributed to from.
func NewAnswer(from, to types.UserID, session types.Session) *Answer {
	return &Answer{Type: TypeAnswer, FromUser: from, ToUser: to, Session: &session}
}
