package ipc

import (
	"os"
	"path/filepath"
	"strings"
)

const commandFile = "cmd.txt"

// Command is an operator request delivered to a running daemon.
type Command string

const (
	CmdStatus Command = "status" // Send a status update now
	CmdQuit   Command = "quit"   // Stop recording and shut down
)

// ParseCommand validates raw text as a known command.
func ParseCommand(raw string) (Command, bool) {
	cmd := Command(strings.TrimSpace(raw))
	switch cmd {
	case CmdStatus, CmdQuit:
		return cmd, true
	}
	return "", false
}

// CommandPath is where the daemon in dir looks for commands.
func CommandPath(dir string) string {
	return filepath.Join(dir, commandFile)
}

// WriteCommand writes a command to <dir>/cmd.txt
func WriteCommand(dir string, cmd Command) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(CommandPath(dir), []byte(string(cmd)), 0644)
}

// ReadCommand reads and clears <dir>/cmd.txt.
// Returns empty string if no command or file doesn't exist
func ReadCommand(dir string) (Command, error) {
	cmdPath := CommandPath(dir)

	data, err := os.ReadFile(cmdPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // No command pending
		}
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}

	// Clear the file immediately to prevent re-execution
	if err := os.WriteFile(cmdPath, []byte(""), 0644); err != nil {
		return "", err
	}

	// Unknown commands are ignored
	cmd, _ := ParseCommand(string(data))
	return cmd, nil
}
