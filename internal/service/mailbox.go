package service

import (
	"sync"

	"github.com/isaaclins/psst/internal/domain"
)

// commandKind discriminates player commands.
type commandKind int

const (
	cmdLoadQueue commandKind = iota
	cmdPause
	cmdResume
	cmdStop
	cmdNext
	cmdPrevious
	cmdSetEqualizer

	// Internal commands posted by background workers.
	cmdLoaded
	cmdFinished
)

// command is one message to the player control loop. External commands
// carry their arguments; internal ones carry loader results tagged with the
// generation they belong to.
type command struct {
	kind     commandKind
	items    []domain.PlaybackItem
	position int
	eq       domain.EqualizerConfig

	generation uint64
	loaded     *loadedItem
	err        error
}

// mailbox is an unbounded FIFO of player commands. Sends never block, so
// front-ends and the audio thread can post without waiting on the control
// loop; takes block until a command arrives or the mailbox closes.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []command
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// put appends cmd in issue order. Returns false once the mailbox is closed
// and the command was not accepted.
func (m *mailbox) put(cmd command) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.queue = append(m.queue, cmd)
	m.cond.Signal()
	return true
}

// take removes the oldest command, blocking until one is available. The
// second return is false once the mailbox is closed and drained.
func (m *mailbox) take() (command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return command{}, false
	}
	cmd := m.queue[0]
	m.queue = m.queue[1:]
	return cmd, true
}

// close stops accepting commands and wakes any blocked take. Commands
// already queued are still delivered.
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}
