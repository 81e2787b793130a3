// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package shmq

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests that rely on acquire-release
// orderings through separate atomic words (head/tail/bell/cmd_slot),
// which the race detector cannot observe and so reports as false
// positives.
const RaceEnabled = true
