// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "fmt"

// ConnectionError means no mailbox session could be established.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to %s: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransportError is a failed command on an established session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type DecodeError struct {
	Uid uint32
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode message %d: %v", e.Uid, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
