package orchestrator

import (
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"nsctl-go/utils"
)

// ttySession wires a pseudoterminal to cmd's stdio and copies bytes between
// it and the caller's own terminal, mirroring the window size and raw mode
// of the caller's side for the lifetime of the spawn.
type ttySession struct {
	console  *utils.Console
	oldState *term.State
	sigwinch chan os.Signal
	done     chan struct{}
}

// attachTTY allocates a PTY, wires it to cmd's stdio, and if the caller's
// stdin is itself a terminal puts it in raw mode and forwards size changes.
// Call startCopy once cmd has started to begin the copy loop; call close
// after cmd.Wait returns. The slave end stays open in this process until
// close (or abort) closes the console.
func attachTTY(cmd *exec.Cmd) (*ttySession, error) {
	console, err := utils.NewConsole()
	if err != nil {
		return nil, err
	}

	slave, err := console.OpenSlave()
	if err != nil {
		console.Close()
		return nil, err
	}

	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	s := &ttySession{console: console, done: make(chan struct{})}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			s.oldState = oldState
			s.copySize()
			s.sigwinch = make(chan os.Signal, 1)
			signal.Notify(s.sigwinch, syscall.SIGWINCH)
			go func() {
				for range s.sigwinch {
					s.copySize()
				}
			}()
		}
	}

	return s, nil
}

func (s *ttySession) copySize() {
	ws, err := utils.GetWinsize(os.Stdin)
	if err != nil {
		return
	}
	utils.SetWinsize(s.console.Master(), ws)
}

// startCopy begins the bidirectional copy between the caller's stdio and
// the PTY master, once the child has been started.
func (s *ttySession) startCopy() {
	go io.Copy(s.console.Master(), os.Stdin)
	go func() {
		io.Copy(os.Stdout, s.console.Master())
		close(s.done)
	}()
}

// close restores the caller's terminal state and waits for the output
// copy goroutine to drain after the PTY master has been closed.
func (s *ttySession) close() {
	if s.sigwinch != nil {
		signal.Stop(s.sigwinch)
	}
	s.console.Close()
	<-s.done
	if s.oldState != nil {
		term.Restore(int(os.Stdin.Fd()), s.oldState)
	}
}

// abort is used when the child never started: it restores terminal state
// without waiting on a copy loop that was never begun.
func (s *ttySession) abort() {
	if s.sigwinch != nil {
		signal.Stop(s.sigwinch)
	}
	s.console.Close()
	if s.oldState != nil {
		term.Restore(int(os.Stdin.Fd()), s.oldState)
	}
}
