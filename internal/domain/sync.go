package domain

// SyncStatus is the observable state of the remote synchronization.
// It is never persisted with trip content.
type SyncStatus string

const (
	SyncIdle   SyncStatus = "idle"
	SyncSaving SyncStatus = "saving"
	SyncSaved  SyncStatus = "saved"
	SyncError  SyncStatus = "error"
)
