package models

import "errors"

// Error classes for a run. Every one of them aborts the run.
var (
	ErrFileAccess = errors.New("file access error")
	ErrParse      = errors.New("parse error")
	ErrSchema     = errors.New("schema error")
)
