//go:build !windows

package sidecar

import "os/exec"

func hideConsole(*exec.Cmd) {}
