package smb

import "fmt"

// ErrorKind is the error taxonomy from spec §7.
type ErrorKind int

const (
	// ErrorNone means no error has occurred since the last call to
	// Connection.Error.
	ErrorNone ErrorKind = iota
	// ErrorParameterInvalid covers malformed UNCs, unresolvable hosts, and
	// arguments out of range.
	ErrorParameterInvalid
	// ErrorGeneralSystemError covers allocation/socket-creation failures
	// and other uncategorized local failures.
	ErrorGeneralSystemError
	// ErrorConnectionProblem covers transport connect failures, unexpected
	// EOF, framing errors, and MID mismatches.
	ErrorConnectionProblem
	// ErrorProtocolError covers a non-zero NT status on a call that must
	// succeed, an invalid dialect index, or an otherwise impossible field.
	ErrorProtocolError
	// ErrorAccessDenied covers STATUS_ACCESS_DENIED / STATUS_LOGON_FAILURE
	// during SESSION_SETUP or TREE_CONNECT.
	ErrorAccessDenied
	// ErrorNotFound covers STATUS_OBJECT_NAME_NOT_FOUND /
	// STATUS_NO_SUCH_FILE from NT_CREATE or FIND_FIRST2.
	ErrorNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "None"
	case ErrorParameterInvalid:
		return "ParameterInvalid"
	case ErrorGeneralSystemError:
		return "GeneralSystemError"
	case ErrorConnectionProblem:
		return "ConnectionProblem"
	case ErrorProtocolError:
		return "ProtocolError"
	case ErrorAccessDenied:
		return "AccessDenied"
	case ErrorNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is the error type every public Connection operation returns on
// failure. It implements the standard error interface so it composes with
// errors.Is/errors.As, while Connection additionally remembers the most
// recent one for the C-style Error()/ErrorMessage() polling accessors.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("smb: %s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// setError records err as the connection's most recent failure. Passing nil
// clears it.
func (c *Connection) setError(err *Error) {
	c.lastError = err
}

// Error returns and clears the most recent error kind, mirroring the
// original tango_error() get-and-clear accessor.
func (c *Connection) Error() ErrorKind {
	if c.lastError == nil {
		return ErrorNone
	}
	kind := c.lastError.Kind
	c.lastError = nil
	return kind
}

// ErrorMessage returns the most recent error's message without clearing it,
// mirroring tango_error_message(). Returns "" if there is none.
func (c *Connection) ErrorMessage() string {
	if c.lastError == nil {
		return ""
	}
	return c.lastError.Message
}
