// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rollup

import (
    "fmt"
)

type Code uint8

const (
    BadOrigin Code = iota
    ClientNotConfigured
    CoreNotConfigured
    InvalidKeyLength
    InvalidAddressLength
    NoRequestInQueue
    FailedToCreateClient
    FailedToCommitTx
    FailedToCallRollup
    JsError
    FailedToDecode
    NbWinnersNotSet
    NextEraUnknown
)

var codeNames = [...]string{
    "BadOrigin",
    "ClientNotConfigured",
    "CoreNotConfigured",
    "InvalidKeyLength",
    "InvalidAddressLength",
    "NoRequestInQueue",
    "FailedToCreateClient",
    "FailedToCommitTx",
    "FailedToCallRollup",
    "JsError",
    "FailedToDecode",
    "NbWinnersNotSet",
    "NextEraUnknown",
}

func (c Code) String() string {
    if int(c) < len(codeNames) {
        return codeNames[c]
    }
    return fmt.Sprintf("Code(%d)", uint8(c))
}

// Error is the typed result of a failed contract call. Errors compare equal
// under errors.Is when their codes match.
type Error struct {
    Code    Code
    Message string
    Err     error
}

var (
    ErrBadOrigin            = &Error{Code: BadOrigin}
    ErrClientNotConfigured  = &Error{Code: ClientNotConfigured}
    ErrCoreNotConfigured    = &Error{Code: CoreNotConfigured}
    ErrInvalidKeyLength     = &Error{Code: InvalidKeyLength}
    ErrInvalidAddressLength = &Error{Code: InvalidAddressLength}
    ErrNoRequestInQueue     = &Error{Code: NoRequestInQueue}
    ErrFailedToCreateClient = &Error{Code: FailedToCreateClient}
    ErrFailedToCommitTx     = &Error{Code: FailedToCommitTx}
    ErrFailedToCallRollup   = &Error{Code: FailedToCallRollup}
    ErrJsError              = &Error{Code: JsError}
    ErrFailedToDecode       = &Error{Code: FailedToDecode}
    ErrNbWinnersNotSet      = &Error{Code: NbWinnersNotSet}
    ErrNextEraUnknown       = &Error{Code: NextEraUnknown}
)

func newError(code Code, err error) *Error {
    return &Error{Code: code, Err: err}
}

func jsError(msg string) *Error {
    return &Error{Code: JsError, Message: msg}
}

func (e *Error) Error() string {
    s := e.Code.String()
    if e.Message != "" {
        s += "(" + e.Message + ")"
    }
    if e.Err != nil {
        s += ": " + e.Err.Error()
    }
    return s
}

func (e *Error) Unwrap() error {
    return e.Err
}

func (e *Error) Is(target error) bool {
    t, ok := target.(*Error)
    return ok && t.Code == e.Code
}
