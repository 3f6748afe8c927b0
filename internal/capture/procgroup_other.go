//go:build !unix

package capture

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

func signalGroup(cmd *exec.Cmd, kill bool) error {
	return cmd.Process.Kill()
}
