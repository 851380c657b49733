/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snap(label, blob string, ts time.Time) Snapshot {
	return Snapshot{Label: label, Blob: []byte(blob), TS: ts}
}

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Push(snap("add", "a", t0))
	m.Push(snap("add", "b", t0.Add(20*time.Millisecond)))
	if _, depth, _ := m.Stats(); depth != 2 {
		t.Fatalf("expected 2 undo entries, got %d", depth)
	}
	s, ok := m.Undo(snap("", "c", t0))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, s.Blob)
	}
	s, ok = m.Redo(snap("", "b", t0))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, s.Blob)
	}
	if _, depth, redo := m.Stats(); depth != 2 || redo != 0 {
		t.Fatalf("unexpected depths after redo: undo=%d redo=%d", depth, redo)
	}
}

func TestCoalesceKeepsEarliestState(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Push(snap("move layer-1", "start", t0))
	m.Push(snap("move layer-1", "mid", t0.Add(10*time.Millisecond)))
	m.Push(snap("move layer-1", "late", t0.Add(55*time.Millisecond)))
	if _, depth, _ := m.Stats(); depth != 1 {
		t.Fatalf("expected one coalesced entry, got %d", depth)
	}
	s, ok := m.Undo(snap("", "now", t0))
	if !ok || string(s.Blob) != "start" {
		t.Fatalf("expected pre-drag state, got ok=%v blob=%q", ok, s.Blob)
	}
}

func TestDifferentLabelsDoNotCoalesce(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Second})
	t0 := time.Now()
	m.Push(snap("move layer-1", "a", t0))
	m.Push(snap("move layer-2", "b", t0))
	if _, depth, _ := m.Stats(); depth != 2 {
		t.Fatalf("expected 2 entries, got %d", depth)
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Push(snap("", "a", t0))
	m.Undo(snap("", "b", t0))
	m.Push(snap("", "c", t0))
	if _, ok := m.Redo(snap("", "x", t0)); ok {
		t.Fatalf("redo must be empty after a new change")
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxDepth: 3})
	for i := 0; i < 10; i++ {
		m.Push(snap("", "xxxxx", time.Now()))
	}
	bytes, depth, _ := m.Stats()
	if depth > 3 || bytes > 20 {
		t.Fatalf("caps not enforced: bytes=%d depth=%d", bytes, depth)
	}
	m.Clear()
	if bytes, depth, redo := m.Stats(); bytes != 0 || depth != 0 || redo != 0 {
		t.Fatalf("clear left state behind")
	}
}
