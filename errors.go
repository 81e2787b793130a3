// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Submit: the queue is full (backpressure).
// For Receive: the queue is empty (no data available).
//
// ErrWouldBlock is a control flow signal, not a failure. It is only
// ever returned when the caller passed NonBlock / NonBlockReceive;
// otherwise Submit and Receive park instead.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Submit(entry, wait, ring, 0)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if shmq.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err // unexpected
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrUnknown is reserved for failure modes outside the two recoverable
// WouldBlock conditions. Submit and Receive never return it today; it
// exists so the taxonomy can grow without changing either signature.
var ErrUnknown = errors.New("shmq: unknown error")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a
// failure). Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}
