package worker

import "github.com/sakif/coderunner/internal/executor"

// MessageType identifies what a Message asks for or reports.
type MessageType string

// Inbound (bridge → worker): Init, Compile, Cancel.
// Outbound (worker → bridge): Ready, Started, Result, Error.
const (
	TypeInit    MessageType = "init"
	TypeReady   MessageType = "ready"
	TypeCompile MessageType = "compile"
	// TypeStarted reports that a compile left the queue and reached the
	// backend. It always precedes that compile's result or error.
	TypeStarted MessageType = "started"
	TypeResult  MessageType = "result"
	TypeError   MessageType = "error"
	TypeCancel  MessageType = "cancel"
)

// Message is the only thing that crosses between the worker and its owner.
// It is passed by value; nothing in it is shared.
//
// ID correlates a compile with its result/error. Lifecycle messages (init,
// ready, and an error reporting a failed init) carry ID 0.
type Message struct {
	Type   MessageType               `json:"type"`
	ID     uint64                    `json:"id,omitempty"`
	Code   string                    `json:"code,omitempty"`
	Stdin  string                    `json:"stdin,omitempty"`
	Result *executor.ExecutionResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
}
