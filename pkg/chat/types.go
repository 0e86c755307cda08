// Package chat implements the chat-adapter interface
// (handleMessage(sessionKey, text, onProgress?) → string) plus the
// /schedule command surface: a two-way conversational front end over the
// orchestrator and scheduling control plane, built on top of a one-way
// notification adapter.
package chat

// Message is one inbound chat message, pushed by an adapter into
// Service.HandleMessage.
type Message struct {
	Channel string
	SenderID string
	Text string
	PeerKind string
	ThreadID string
}

// ProgressFunc streams an intermediate update back to the adapter while a
// run is in flight. Adapters that can't push mid-request (a synchronous
// webhook) pass nil.
type ProgressFunc func(update string)
