package realtime

import (
	"context"
	"sort"

	"github.com/comalice/assetstate"
)

// CommandFunc is work queued from any goroutine and run on the tick
// goroutine with exclusive access to the App.
type CommandFunc[S comparable] func(ctx context.Context, app *assetstate.App[S]) error

// Command adds sequencing metadata for deterministic ordering
type Command[S comparable] struct {
	Run         CommandFunc[S]
	SequenceNum uint64
	Priority    int
}

// sortCommands orders commands deterministically
func sortCommands[S comparable](cmds []Command[S]) {
	// Stable sort preserves insertion order for equal priorities
	sort.SliceStable(cmds, func(i, j int) bool {
		// Primary: Higher priority first
		if cmds[i].Priority != cmds[j].Priority {
			return cmds[i].Priority > cmds[j].Priority
		}

		// Secondary: Earlier sequence number first (FIFO)
		return cmds[i].SequenceNum < cmds[j].SequenceNum
	})
}
