// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the core readiness-polling event reactor:
// fd registration, waker dispatch, and the self-pipe trick for
// cross-goroutine wake-up, built on poll(2) on Unix. Windows has no
// backend; see reactor_windows.go.
package reactor
