package rtnl

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Sentinel errors for each category of failure.  Errors returned by this
// package can be matched against these values using errors.Is.
var (
	// ErrLengthMismatch indicates a fixed-size value or structure was
	// decoded from or encoded into a buffer of the wrong size.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrArrayLengthMismatch indicates a fixed-count array had the wrong
	// number of elements.
	ErrArrayLengthMismatch = errors.New("array length mismatch")

	// ErrTruncatedAttribute indicates an attribute header claims more bytes
	// than remain in its buffer.
	ErrTruncatedAttribute = errors.New("truncated attribute")

	// ErrShortMessage indicates a message payload is shorter than the fixed
	// header of its kind.
	ErrShortMessage = errors.New("short message")

	// ErrUnsupportedMessageType indicates no codec is registered for a
	// message type.
	ErrUnsupportedMessageType = errors.New("unsupported message type")

	// ErrTimeout indicates a request's deadline expired before a complete
	// reply arrived.
	ErrTimeout = errors.New("request timed out")

	// ErrCancelled indicates a request was cancelled by its caller.
	ErrCancelled = errors.New("request cancelled")

	// ErrSequenceInUse indicates a caller-supplied sequence number is held
	// by a pending request.
	ErrSequenceInUse = errors.New("sequence number in use")
)

// Errors which can be returned by a Socket that does not implement
// all exposed methods of Conn.
var errNotSupported = errors.New("operation not supported")

// notSupported provides a concise constructor for "not supported" errors.
func notSupported(op string) *OpError {
	return &OpError{
		Op:  op,
		Err: errNotSupported,
	}
}

// A LengthMismatchError reports a value of the wrong size.
type LengthMismatchError struct {
	// Name identifies the structure or field being processed.
	Name      string
	Want, Got int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%v: %s: want %d bytes, got %d", ErrLengthMismatch, e.Name, e.Want, e.Got)
}

// Is implements errors.Is for ErrLengthMismatch.
func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }

// An ArrayLengthMismatchError reports a fixed-count array with the wrong
// number of elements.
type ArrayLengthMismatchError struct {
	Name      string
	Want, Got int
}

func (e *ArrayLengthMismatchError) Error() string {
	return fmt.Sprintf("%v: %s: want %d elements, got %d", ErrArrayLengthMismatch, e.Name, e.Want, e.Got)
}

// Is implements errors.Is for ErrArrayLengthMismatch.
func (e *ArrayLengthMismatchError) Is(target error) bool { return target == ErrArrayLengthMismatch }

// A TruncatedAttributeError reports an attribute whose declared length
// exceeds the bytes remaining at Offset.
type TruncatedAttributeError struct {
	Offset    int
	Length    int
	Remaining int
}

func (e *TruncatedAttributeError) Error() string {
	return fmt.Sprintf("%v: length %d at offset %d, %d bytes remaining",
		ErrTruncatedAttribute, e.Length, e.Offset, e.Remaining)
}

// Is implements errors.Is for ErrTruncatedAttribute.
func (e *TruncatedAttributeError) Is(target error) bool { return target == ErrTruncatedAttribute }

// A ShortMessageError reports a payload too short for the fixed header of
// its kind.
type ShortMessageError struct {
	Kind      string
	Want, Got int
}

func (e *ShortMessageError) Error() string {
	return fmt.Sprintf("%v: %s: need at least %d bytes, got %d", ErrShortMessage, e.Kind, e.Want, e.Got)
}

// Is implements errors.Is for ErrShortMessage.
func (e *ShortMessageError) Is(target error) bool { return target == ErrShortMessage }

// An UnsupportedMessageTypeError reports a message type with no registered
// codec.
type UnsupportedMessageTypeError struct {
	Type HeaderType
}

func (e *UnsupportedMessageTypeError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUnsupportedMessageType, e.Type)
}

// Is implements errors.Is for ErrUnsupportedMessageType.
func (e *UnsupportedMessageTypeError) Is(target error) bool {
	return target == ErrUnsupportedMessageType
}

var _ error = &KernelError{}

// A KernelError is an error reply from the kernel: a negative errno carried
// in a HeaderTypeError or HeaderTypeDone message, plus any extended
// acknowledgement diagnostics.
//
// A KernelError is a normal outcome of a request and is distinct from
// transport failures, which are reported as *OpError.
type KernelError struct {
	// Errno is the positive error number reported by the kernel.
	Errno syscall.Errno

	// Message and Offset are populated from extended acknowledgement
	// attributes, when the kernel provides them.
	Message string
	Offset  int

	// Attributes holds every extended acknowledgement attribute, including
	// ones without a dedicated field.
	Attributes []Attribute
}

func (e *KernelError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("netlink: %v: %s", e.Errno, e.Message)
	}

	return fmt.Sprintf("netlink: %v", e.Errno)
}

// Unwrap unwraps the errno so errors.Is works against syscall values.
func (e *KernelError) Unwrap() error { return e.Errno }

// IsNotExist determines if an error is produced as the result of querying some
// file, object, resource, etc. which does not exist.  Users of this package
// should always use rtnl.IsNotExist, rather than os.IsNotExist, when
// checking for specific netlink-related errors.
//
// Errors types created by this package, such as OpError and KernelError, can
// be used with IsNotExist, but this function also defers to the behavior of
// os.IsNotExist for unrecognized error types.
func IsNotExist(err error) bool {
	var kerr *KernelError
	if errors.As(err, &kerr) {
		return os.IsNotExist(kerr.Errno)
	}

	var oerr *OpError
	if errors.As(err, &oerr) {
		// Unwrap the inner error and use the stdlib's logic.
		return os.IsNotExist(oerr.Err)
	}

	return os.IsNotExist(err)
}

var _ error = &OpError{}

// An OpError is an error produced as the result of a failed netlink operation.
type OpError struct {
	// Op is the operation which caused this OpError, such as "send",
	// "receive", or "decode".
	Op string

	// Err is the underlying error which caused this OpError.
	Err error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	return fmt.Sprintf("netlink %s: %v", e.Op, e.Err)
}

// Unwrap unwraps the internal Err field for use with errors.Unwrap.
func (e *OpError) Unwrap() error { return e.Err }
