package state

import "github.com/ShayCichocki/rdteam/internal/backlog"

// Compile-time verification that DB implements the backlog contracts.
var (
	_ backlog.Store  = (*DB)(nil)
	_ backlog.Reader = (*DB)(nil)
	_ backlog.Writer = (*DB)(nil)
)
