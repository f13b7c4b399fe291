// Package transport implements the wire protocol: small JSON-framed
// control messages, the large length-prefixed catalog sync payload, and
// chunked file content transfer with an ACK handshake.
package transport

// ClientMessage is one frame a client may send to the server.
type ClientMessage struct {
	Kind    string   `json:"kind"`
	Code    string   `json:"code,omitempty"`    // Verify
	Text    string   `json:"text,omitempty"`    // Text
	Command []string `json:"command,omitempty"` // Command
}

const (
	CMUnknown  = "Unknown"
	CMVerify   = "Verify"
	CMText     = "Text"
	CMDone     = "Done"
	CMReady    = "Ready"
	CMNotReady = "NotReady"
	CMCommand  = "Command"
)

// Verify builds a ClientMessage carrying a login code.
func Verify(code string) ClientMessage { return ClientMessage{Kind: CMVerify, Code: code} }

// TextMsg builds a ClientMessage carrying free text.
func TextMsg(s string) ClientMessage { return ClientMessage{Kind: CMText, Text: s} }

// Done builds the Done control message.
func Done() ClientMessage { return ClientMessage{Kind: CMDone} }

// Ready builds the Ready control message.
func Ready() ClientMessage { return ClientMessage{Kind: CMReady} }

// NotReady builds the NotReady control message.
func NotReady() ClientMessage { return ClientMessage{Kind: CMNotReady} }

// CommandMsg builds a ClientMessage carrying a command argv.
func CommandMsg(argv []string) ClientMessage { return ClientMessage{Kind: CMCommand, Command: argv} }

// ServerMessage is one frame the server may send to a client.
type ServerMessage struct {
	Kind string `json:"kind"`
	Deny string `json:"deny,omitempty"` // Deny reason
	Text string `json:"text,omitempty"` // Text / Uuid
}

const (
	SMUnknown = "Unknown"
	SMPass    = "Pass"
	SMDeny    = "Deny"
	SMDone    = "Done"
	SMSync    = "Sync"
	SMText    = "Text"
	SMUuid    = "Uuid"
)

// Pass builds the Pass control message.
func Pass() ServerMessage { return ServerMessage{Kind: SMPass} }

// DenyMsg builds a Deny message carrying a reason.
func DenyMsg(reason string) ServerMessage { return ServerMessage{Kind: SMDeny, Deny: reason} }

// ServerDone builds the Done control message.
func ServerDone() ServerMessage { return ServerMessage{Kind: SMDone} }

// Sync builds the Sync marker message; the actual catalog payload travels
// as a large message immediately following it (see SendLargeText).
func Sync() ServerMessage { return ServerMessage{Kind: SMSync} }

// ServerText builds a Text message.
func ServerText(s string) ServerMessage { return ServerMessage{Kind: SMText, Text: s} }

// Uuid builds a Uuid response message.
func Uuid(id string) ServerMessage { return ServerMessage{Kind: SMUuid, Text: id} }
