package glue

import "encoding/json"

// ClientKind tags the variant carried by a ClientMessage.
type ClientKind string

const (
	ClientSubscribeLatestBlock  ClientKind = "subscribe_latest_block"
	ClientSubscribeNodeIdentity ClientKind = "subscribe_node_identity"
	ClientSubscribeVoters       ClientKind = "subscribe_voters"
	ClientSubscribeStakeTables  ClientKind = "subscribe_stake_tables"
	ClientSubscribeValidators   ClientKind = "subscribe_validators"

	ClientRequestBlocksSnapshot      ClientKind = "request_blocks_snapshot"
	ClientRequestNodeIdentitySnap    ClientKind = "request_node_identity_snapshot"
	ClientRequestHistogramSnapshot   ClientKind = "request_histogram_snapshot"
	ClientRequestVotersSnapshot      ClientKind = "request_voters_snapshot"
	ClientRequestValidatorsSnapshot  ClientKind = "request_validators_snapshot"
	ClientRequestStakeTableSnapshot  ClientKind = "request_stake_table_snapshot"

	// ClientUnrecognizedCommand is never produced by MarshalJSON; it is
	// the variant UnmarshalJSON falls back to for any Kind it does not
	// recognize, per the "forward compatibility" design note: unknown
	// request JSON is reflected back rather than dropping the connection.
	ClientUnrecognizedCommand ClientKind = "__unrecognized_command__"
)

// ClientMessage is the tagged union of messages a client may send at the
// component boundary (§6). Kind names the variant; for
// ClientUnrecognizedCommand, Raw holds the original undecoded JSON.
type ClientMessage struct {
	Kind ClientKind
	Raw  json.RawMessage // set only when Kind == ClientUnrecognizedCommand
}

type clientMessageWire struct {
	Kind ClientKind `json:"kind"`
}

// MarshalJSON encodes a recognized ClientMessage as {"kind": "..."}, or
// returns Raw verbatim if Kind is ClientUnrecognizedCommand.
func (m ClientMessage) MarshalJSON() ([]byte, error) {
	if m.Kind == ClientUnrecognizedCommand {
		return m.Raw, nil
	}
	return json.Marshal(clientMessageWire{Kind: m.Kind})
}

// UnmarshalJSON decodes a ClientMessage, falling back to
// ClientUnrecognizedCommand with the raw bytes preserved in Raw for any
// Kind this build does not recognize.
func (m *ClientMessage) UnmarshalJSON(data []byte) error {
	var wire clientMessageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		m.Kind = ClientUnrecognizedCommand
		m.Raw = append(json.RawMessage(nil), data...)
		return nil
	}
	if !isKnownClientKind(wire.Kind) {
		m.Kind = ClientUnrecognizedCommand
		m.Raw = append(json.RawMessage(nil), data...)
		return nil
	}
	m.Kind = wire.Kind
	return nil
}

func isKnownClientKind(k ClientKind) bool {
	switch k {
	case ClientSubscribeLatestBlock, ClientSubscribeNodeIdentity, ClientSubscribeVoters,
		ClientSubscribeStakeTables, ClientSubscribeValidators,
		ClientRequestBlocksSnapshot, ClientRequestNodeIdentitySnap, ClientRequestHistogramSnapshot,
		ClientRequestVotersSnapshot, ClientRequestValidatorsSnapshot, ClientRequestStakeTableSnapshot:
		return true
	default:
		return false
	}
}

// ServerKind tags the variant carried by a ServerMessage.
type ServerKind string

const (
	ServerYouAre              ServerKind = "you_are"
	ServerLatestBlock         ServerKind = "latest_block"
	ServerNodeIdentity        ServerKind = "node_identity"
	ServerVoters              ServerKind = "voters"
	ServerStakeTables         ServerKind = "stake_tables"
	ServerValidators          ServerKind = "validators"
	ServerBlocksSnapshot      ServerKind = "blocks_snapshot"
	ServerNodeIdentitySnap    ServerKind = "node_identity_snapshot"
	ServerHistogramSnapshot   ServerKind = "histogram_snapshot"
	ServerVotersSnapshot      ServerKind = "voters_snapshot"
	ServerValidatorsSnapshot  ServerKind = "validators_snapshot"
	ServerStakeTableSnapshot  ServerKind = "stake_table_snapshot"

	// ServerUnrecognizedRequest is the symmetric reply-side fallback: a
	// server that cannot make sense of a ClientUnrecognizedCommand (or
	// any other malformed request) reflects it back rather than closing
	// the connection.
	ServerUnrecognizedRequest ServerKind = "__unrecognized_request__"
)

// ClientID identifies one connected client for a YouAre reply.
type ClientID string

// ServerMessage is the tagged union of replies the server may send (§6):
// the symmetric reply set to ClientMessage, plus YouAre(ClientId) and
// UnrecognizedRequest(json).
type ServerMessage struct {
	Kind     ServerKind
	ClientID ClientID        // set only when Kind == ServerYouAre
	Payload  json.RawMessage // set for data-carrying variants
	Raw      json.RawMessage // set only when Kind == ServerUnrecognizedRequest
}

type serverMessageWire struct {
	Kind     ServerKind      `json:"kind"`
	ClientID ClientID        `json:"client_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// NewYouAre builds the YouAre(ClientId) reply.
func NewYouAre(id ClientID) ServerMessage {
	return ServerMessage{Kind: ServerYouAre, ClientID: id}
}

// NewUnrecognizedRequest builds the UnrecognizedRequest(json) fallback
// reply for a request this server could not interpret.
func NewUnrecognizedRequest(raw json.RawMessage) ServerMessage {
	return ServerMessage{Kind: ServerUnrecognizedRequest, Raw: append(json.RawMessage(nil), raw...)}
}

// MarshalJSON encodes a ServerMessage, returning Raw verbatim for the
// UnrecognizedRequest variant.
func (m ServerMessage) MarshalJSON() ([]byte, error) {
	if m.Kind == ServerUnrecognizedRequest {
		return m.Raw, nil
	}
	return json.Marshal(serverMessageWire{Kind: m.Kind, ClientID: m.ClientID, Payload: m.Payload})
}

// UnmarshalJSON decodes a ServerMessage, falling back to
// ServerUnrecognizedRequest for any Kind this build does not recognize.
func (m *ServerMessage) UnmarshalJSON(data []byte) error {
	var wire serverMessageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		m.Kind = ServerUnrecognizedRequest
		m.Raw = append(json.RawMessage(nil), data...)
		return nil
	}
	if !isKnownServerKind(wire.Kind) {
		m.Kind = ServerUnrecognizedRequest
		m.Raw = append(json.RawMessage(nil), data...)
		return nil
	}
	m.Kind = wire.Kind
	m.ClientID = wire.ClientID
	m.Payload = wire.Payload
	return nil
}

func isKnownServerKind(k ServerKind) bool {
	switch k {
	case ServerYouAre, ServerLatestBlock, ServerNodeIdentity, ServerVoters, ServerStakeTables,
		ServerValidators, ServerBlocksSnapshot, ServerNodeIdentitySnap, ServerHistogramSnapshot,
		ServerVotersSnapshot, ServerValidatorsSnapshot, ServerStakeTableSnapshot:
		return true
	default:
		return false
	}
}
