//go:build !unix

package shellexec

import "os/exec"

// configureProcessGroup keeps exec's default cancellation, which kills only the shell.
func configureProcessGroup(*exec.Cmd) {}

func exitCode(err *exec.ExitError) int {
	return err.ExitCode()
}
