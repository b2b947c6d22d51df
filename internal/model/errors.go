package model

import (
	"errors"
	"fmt"
)

// Code identifies an error kind. Its numeric value is the process exit
// code for that kind.
type Code int

// Profile errors.
const (
	ProfileNotFound           Code = 1
	ProfileNoPasswordProvided Code = 2
	ProfileAgentLocked        Code = 3
)

// Update errors.
const (
	UpdateSyncError Code = 20
	UpdateIOError   Code = 21
)

// Note errors.
const (
	NoteInsertionError    Code = 30
	NoteEditError         Code = 31
	NoteNeedsMerge        Code = 32
	NoteContentNotChanged Code = 33
	NoteNotFound          Code = 34
)

// Generic covers everything outside the three families.
const Generic Code = 255

// Family groups codes for printing.
type Family string

const (
	FamilyProfile Family = "profile"
	FamilyUpdate  Family = "update"
	FamilyNote    Family = "note"
	FamilyGeneric Family = "error"
)

var codeNames = map[Code]string{
	ProfileNotFound:           "NotFound",
	ProfileNoPasswordProvided: "NoPasswordProvided",
	ProfileAgentLocked:        "AgentLocked",
	UpdateSyncError:           "SyncError",
	UpdateIOError:             "IoError",
	NoteInsertionError:        "InsertionError",
	NoteEditError:             "EditError",
	NoteNeedsMerge:            "NeedsMerge",
	NoteContentNotChanged:     "ContentNotChanged",
	NoteNotFound:              "NoteNotFound",
	Generic:                   "Generic",
}

// String returns the kind name.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Family returns the family the code belongs to.
func (c Code) Family() Family {
	switch {
	case c >= 1 && c <= 3:
		return FamilyProfile
	case c >= 20 && c <= 21:
		return FamilyUpdate
	case c >= 30 && c <= 34:
		return FamilyNote
	default:
		return FamilyGeneric
	}
}

// Error is the application error type. Every failure surfaced to the user
// is one of these, optionally wrapping a lower-level store or transport
// error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Code.Family(), e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Code.Family(), e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so errors.Is works
// against the sentinel-style values below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrProfileNotFound    = &Error{Code: ProfileNotFound}
	ErrNoPasswordProvided = &Error{Code: ProfileNoPasswordProvided}
	ErrAgentLocked        = &Error{Code: ProfileAgentLocked}
	ErrSync               = &Error{Code: UpdateSyncError}
	ErrIO                 = &Error{Code: UpdateIOError}
	ErrInsertion          = &Error{Code: NoteInsertionError}
	ErrEdit               = &Error{Code: NoteEditError}
	ErrNeedsMerge         = &Error{Code: NoteNeedsMerge}
	ErrContentNotChanged  = &Error{Code: NoteContentNotChanged}
	ErrNoteNotFound       = &Error{Code: NoteNotFound}
)

// Errorf builds an *Error of the given code.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given code around err.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or Generic.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Generic
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return int(CodeOf(err))
}
