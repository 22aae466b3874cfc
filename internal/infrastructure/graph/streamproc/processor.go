// Package streamproc holds the two stream post-processors the Engine
// Facade chooses between: one tuned for chat-style graphs where only
// chunks destined for an Answer node should reach the caller
// incrementally, and one for single-shot graphs where only chunks from
// nodes with a path to an End node reach the caller.
package streamproc

import "github.com/graphflow/engine/internal/domain/execution"

// Processor transforms the raw event stream the executor produces into
// the stream a caller actually receives. It runs inline in the
// facade's forwarding loop: Process is called once per event and
// returns the (possibly empty, possibly multi-event) sequence to
// forward in its place.
type Processor interface {
	Process(ev execution.GraphEvent) []execution.GraphEvent
}
