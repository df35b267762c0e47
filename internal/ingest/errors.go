package ingest

import (
	"errors"
	"fmt"
)

// Precondition and lookup errors. All are returned wrapped with context; test with errors.Is.
var (
	ErrUnreadableFile       = errors.New("unreadable spreadsheet file")
	ErrImportInProgress     = errors.New("an import is still in progress")
	ErrNoActiveImport       = errors.New("no active import")
	ErrSheetNotFound        = errors.New("sheet is not pending")
	ErrHeaderRowOutOfRange  = errors.New("header row out of range")
	ErrHeaderRowRequired    = errors.New("a valid header row is required")
	ErrAlreadyEditing       = errors.New("another sheet is being edited")
	ErrNoEditSession        = errors.New("no edit session is open")
	ErrEditSessionClosed    = errors.New("edit session is closed")
	ErrEditOutOfRange       = errors.New("edit position out of range")
	ErrUnresolvedEdit       = errors.New("sheet has unsaved edits")
	ErrConfirmInFlight      = errors.New("sheet is already being confirmed")
	ErrStaleResponse        = errors.New("response discarded, its sheet or import is gone")
	ErrReportNotFound       = errors.New("report not found")
	ErrDuplicateReport      = errors.New("report id already used")
	ErrConfirmationRequired = errors.New("removal must be confirmed")
)

// ServiceError is a failed call to the spreadsheet service
type ServiceError struct {
	Op    string // "discover", "preview", "commit"
	File  string
	Sheet string
	Err   error
}

func (e *ServiceError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("service error: %s %s: %v", e.Op, e.File, e.Err)
	}
	return fmt.Sprintf("service error: %s %s [%s]: %v", e.Op, e.File, e.Sheet, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
