// Package protocol defines the wire messages exchanged between client and
// server and the framing used to deliver them over a TCP byte stream.
package protocol

import (
	"encoding/json"
	"fmt"
)

// GameRules are the fixed parameters of a match, sent to both players in Start.
type GameRules struct {
	NumberTurns uint32 `json:"number_turns"`
	TotalPoints uint32 `json:"total_points"`
}

// DefaultGameRules matches the original implementation's hardcoded values.
var DefaultGameRules = GameRules{NumberTurns: 7, TotalPoints: 700}

// ClientTag identifies the variant of a ClientMessage.
type ClientTag string

const (
	ClientCreate ClientTag = "Create"
	ClientJoin   ClientTag = "Join"
	ClientMove   ClientTag = "Move"
)

// ClientMessage is sent from a client to the server.
//
// Create carries no payload. Join carries a JoinCode. Move carries a wager.
// Exactly one of Code/Wager is meaningful, selected by Tag; this mirrors a
// tagged union with a JSON-friendly flat representation.
type ClientMessage struct {
	Tag   ClientTag `json:"tag"`
	Code  uint32    `json:"data,omitempty"`
	Wager uint32    `json:"-"`
}

// MarshalJSON encodes the message as {"tag":"Move","data":7} for data-bearing
// variants, or {"tag":"Create"} for nullary ones.
func (m ClientMessage) MarshalJSON() ([]byte, error) {
	switch m.Tag {
	case ClientCreate:
		return json.Marshal(struct {
			Tag ClientTag `json:"tag"`
		}{m.Tag})
	case ClientJoin:
		return json.Marshal(struct {
			Tag  ClientTag `json:"tag"`
			Data uint32    `json:"data"`
		}{m.Tag, m.Code})
	case ClientMove:
		return json.Marshal(struct {
			Tag  ClientTag `json:"tag"`
			Data uint32    `json:"data"`
		}{m.Tag, m.Wager})
	default:
		return nil, fmt.Errorf("protocol: unknown client message tag %q", m.Tag)
	}
}

func (m *ClientMessage) UnmarshalJSON(b []byte) error {
	var raw struct {
		Tag  ClientTag `json:"tag"`
		Data uint32    `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Tag {
	case ClientCreate:
		*m = ClientMessage{Tag: ClientCreate}
	case ClientJoin:
		*m = ClientMessage{Tag: ClientJoin, Code: raw.Data}
	case ClientMove:
		*m = ClientMessage{Tag: ClientMove, Wager: raw.Data}
	default:
		return fmt.Errorf("protocol: unknown client message tag %q", raw.Tag)
	}
	return nil
}

// Create builds a nullary Create message.
func Create() ClientMessage { return ClientMessage{Tag: ClientCreate} }

// Join builds a Join message carrying a join code.
func Join(code uint32) ClientMessage { return ClientMessage{Tag: ClientJoin, Code: code} }

// Move builds a Move message carrying a wager.
func Move(n uint32) ClientMessage { return ClientMessage{Tag: ClientMove, Wager: n} }

// ServerTag identifies the variant of a ServerMessage.
type ServerTag string

const (
	ServerConnectionLost ServerTag = "ConnectionLost"
	ServerProtocolError  ServerTag = "ProtocolError"
	ServerServerError    ServerTag = "ServerError"
	ServerCreated        ServerTag = "Created"
	ServerJoinFail       ServerTag = "JoinFail"
	ServerStart          ServerTag = "Start"
	ServerTurnResult     ServerTag = "TurnResult"
	ServerEndOfGame      ServerTag = "EndOfGame"
)

// ServerMessage is sent from the server to a client.
type ServerMessage struct {
	Tag        ServerTag `json:"tag"`
	JoinCode   uint32    `json:"-"`
	Rules      GameRules `json:"-"`
	Cmp        int8      `json:"-"`
}

func (m ServerMessage) MarshalJSON() ([]byte, error) {
	switch m.Tag {
	case ServerConnectionLost, ServerProtocolError, ServerServerError, ServerJoinFail, ServerEndOfGame:
		return json.Marshal(struct {
			Tag ServerTag `json:"tag"`
		}{m.Tag})
	case ServerCreated:
		return json.Marshal(struct {
			Tag  ServerTag `json:"tag"`
			Data uint32    `json:"data"`
		}{m.Tag, m.JoinCode})
	case ServerStart:
		return json.Marshal(struct {
			Tag  ServerTag `json:"tag"`
			Data GameRules `json:"data"`
		}{m.Tag, m.Rules})
	case ServerTurnResult:
		return json.Marshal(struct {
			Tag  ServerTag `json:"tag"`
			Data int8      `json:"data"`
		}{m.Tag, m.Cmp})
	default:
		return nil, fmt.Errorf("protocol: unknown server message tag %q", m.Tag)
	}
}

func (m *ServerMessage) UnmarshalJSON(b []byte) error {
	var raw struct {
		Tag  ServerTag       `json:"tag"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Tag {
	case ServerConnectionLost, ServerProtocolError, ServerServerError, ServerJoinFail, ServerEndOfGame:
		*m = ServerMessage{Tag: raw.Tag}
	case ServerCreated:
		var code uint32
		if err := json.Unmarshal(raw.Data, &code); err != nil {
			return fmt.Errorf("protocol: decoding Created payload: %w", err)
		}
		*m = ServerMessage{Tag: ServerCreated, JoinCode: code}
	case ServerStart:
		var rules GameRules
		if err := json.Unmarshal(raw.Data, &rules); err != nil {
			return fmt.Errorf("protocol: decoding Start payload: %w", err)
		}
		*m = ServerMessage{Tag: ServerStart, Rules: rules}
	case ServerTurnResult:
		var cmp int8
		if err := json.Unmarshal(raw.Data, &cmp); err != nil {
			return fmt.Errorf("protocol: decoding TurnResult payload: %w", err)
		}
		*m = ServerMessage{Tag: ServerTurnResult, Cmp: cmp}
	default:
		return fmt.Errorf("protocol: unknown server message tag %q", raw.Tag)
	}
	return nil
}

// Created builds a Created(code) message.
func Created(code uint32) ServerMessage { return ServerMessage{Tag: ServerCreated, JoinCode: code} }

// Start builds a Start(rules) message.
func Start(rules GameRules) ServerMessage { return ServerMessage{Tag: ServerStart, Rules: rules} }

// TurnResult builds a TurnResult(cmp) message. cmp must be -1, 0, or 1.
func TurnResult(cmp int8) ServerMessage { return ServerMessage{Tag: ServerTurnResult, Cmp: cmp} }

// JoinFail, EndOfGame, ConnectionLost, ProtocolError, ServerError are nullary.
var (
	JoinFail       = ServerMessage{Tag: ServerJoinFail}
	EndOfGame      = ServerMessage{Tag: ServerEndOfGame}
	ConnectionLost = ServerMessage{Tag: ServerConnectionLost}
	ProtocolError  = ServerMessage{Tag: ServerProtocolError}
	ServerErr      = ServerMessage{Tag: ServerServerError}
)

// Sign returns -1, 0, or 1 matching the sign of a-b, mirroring the original's
// ord_to_i8(Ordering) helper.
func Sign(a, b uint32) int8 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
