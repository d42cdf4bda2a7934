package models

// Audit event names that drive process node accounting.
const (
	EventExecve = "audit:event:aue_execve:"
	EventFork   = "audit:event:aue_fork:"
	EventVfork  = "audit:event:aue_vfork:"
)

// AuditEvent is the subset of a CADETS audit record used for process counting.
type AuditEvent struct {
	Event        string `json:"event"`
	SubjProcUUID string `json:"subjprocuuid"`
	RetObjUUID1  string `json:"ret_objuuid1,omitempty"`
}

// IsExec reports whether the event replaces the process image.
func (e *AuditEvent) IsExec() bool {
	return e != nil && e.Event == EventExecve
}

// IsFork reports whether the event creates a child process.
func (e *AuditEvent) IsFork() bool {
	if e == nil {
		return false
	}
	return IsForkEvent(e.Event)
}

// IsForkEvent reports whether name is fork or vfork.
func IsForkEvent(name string) bool {
	return name == EventFork || name == EventVfork
}
