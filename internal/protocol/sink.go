package protocol

// Sink delivers outbound messages. Recipients are session ids; a nil list
// means everyone in the match.
type Sink interface {
	Broadcast(op OpCode, payload any, to []string)
	Kick(sessionIDs []string)
}

// Message is one recorded outbound message.
type Message struct {
	Op      OpCode
	Payload any
	To      []string
}

// Recorder is an in-memory Sink. Tests and the TCP transport both use it
// to collect a tick's output before flushing.
type Recorder struct {
	Messages []Message
	Kicked   []string
}

func (r *Recorder) Broadcast(op OpCode, payload any, to []string) {
	r.Messages = append(r.Messages, Message{Op: op, Payload: payload, To: to})
}

func (r *Recorder) Kick(sessionIDs []string) {
	r.Kicked = append(r.Kicked, sessionIDs...)
}

// Of returns the recorded messages with the given op code.
func (r *Recorder) Of(op OpCode) []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Op == op {
			out = append(out, m)
		}
	}
	return out
}

// Drain returns and clears the recorded messages.
func (r *Recorder) Drain() []Message {
	out := r.Messages
	r.Messages = nil
	return out
}
