// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package shmq

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent scenarios: the ring protects slot
// payloads through sequence tags with acquire-release ordering, a
// happens-before edge the detector cannot observe, so correct runs
// report false positives.
const RaceEnabled = true
