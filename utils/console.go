// Package utils provides low-level helpers shared by the orchestrator: the
// sentinel pipe protocol and pseudoterminal handling for interactive spawns.
package utils

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// Console represents a pseudoterminal pair allocated for an interactive
// spawn.
type Console struct {
	master *os.File
	slave  *os.File
	path   string
}

// NewConsole opens /dev/ptmx and unlocks the corresponding slave.
func NewConsole() (*Console, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|syscall.O_NOCTTY|syscall.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/ptmx: %w", err)
	}

	var ptyno uint32
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		master.Fd(), syscall.TIOCGPTN, uintptr(unsafe.Pointer(&ptyno))); errno != 0 {
		master.Close()
		return nil, fmt.Errorf("TIOCGPTN: %v", errno)
	}

	var unlock int32
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		master.Fd(), syscall.TIOCSPTLCK, uintptr(unsafe.Pointer(&unlock))); errno != 0 {
		master.Close()
		return nil, fmt.Errorf("TIOCSPTLCK: %v", errno)
	}

	return &Console{master: master, path: fmt.Sprintf("/dev/pts/%d", ptyno)}, nil
}

// Master returns the master end of the PTY.
func (c *Console) Master() *os.File {
	return c.master
}

// SlavePath returns the path to the slave PTY.
func (c *Console) SlavePath() string {
	return c.path
}

// OpenSlave opens (once) and returns the slave end of the PTY.
func (c *Console) OpenSlave() (*os.File, error) {
	if c.slave != nil {
		return c.slave, nil
	}
	slave, err := os.OpenFile(c.path, os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open slave: %w", err)
	}
	c.slave = slave
	return slave, nil
}

// Close closes both ends of the console.
func (c *Console) Close() {
	if c.master != nil {
		c.master.Close()
	}
	if c.slave != nil {
		c.slave.Close()
	}
}

// Winsize mirrors the kernel's struct winsize for TIOCGWINSZ/TIOCSWINSZ.
type Winsize struct {
	Row    uint16
	Col    uint16
	Xpixel uint16
	Ypixel uint16
}

// GetWinsize reads the terminal window size of f.
func GetWinsize(f *os.File) (*Winsize, error) {
	var ws Winsize
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		f.Fd(), syscall.TIOCGWINSZ, uintptr(unsafe.Pointer(&ws))); errno != 0 {
		return nil, fmt.Errorf("TIOCGWINSZ: %v", errno)
	}
	return &ws, nil
}

// SetWinsize applies ws to the terminal underlying f.
func SetWinsize(f *os.File, ws *Winsize) error {
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		f.Fd(), syscall.TIOCSWINSZ, uintptr(unsafe.Pointer(ws))); errno != 0 {
		return fmt.Errorf("TIOCSWINSZ: %v", errno)
	}
	return nil
}
