// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

// SubmitFlags controls Submit's blocking behavior.
type SubmitFlags uint32

// ReceiveFlags controls Receive's blocking behavior.
type ReceiveFlags uint32

const (
	// NonBlock makes Submit return ErrWouldBlock instead of parking
	// when the queue is full.
	NonBlock SubmitFlags = 1 << iota
)

const (
	// NonBlockReceive makes Receive return ErrWouldBlock instead of
	// parking when the queue is empty.
	NonBlockReceive ReceiveFlags = 1 << iota
)

func (f SubmitFlags) has(bit SubmitFlags) bool   { return f&bit != 0 }
func (f ReceiveFlags) has(bit ReceiveFlags) bool { return f&bit != 0 }
