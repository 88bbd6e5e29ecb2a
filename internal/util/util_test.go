// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "alice")
	data := []byte("[Fails]\ncount = 1\n")

	if err := AtomicWriteFile(path, data, 0600, 0700); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "run", "authramp", "bob")

	if err := AtomicWriteFile(path, []byte("x"), 0600, 0700); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Parent not created: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0700 {
		t.Errorf("Parent mode = %v, want 0700", info.Mode().Perm())
	}
}

func TestAtomicWriteFile_OverwritesAndLeavesNoTemp(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "carol")

	if err := AtomicWriteFile(path, []byte("initial"), 0600, 0700); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("updated"), 0600, 0700); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "updated" {
		t.Errorf("Content = %q, want %q", content, "updated")
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Unix permissions not applicable on Windows")
	}
	path := filepath.Join(t.TempDir(), "dave")

	if err := AtomicWriteFile(path, []byte("x"), 0600, 0700); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("File mode = %v, want 0600", info.Mode().Perm())
	}
}

// =============================================================================
// REMOVE TESTS
// =============================================================================

func TestRemoveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erin")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	removed, err := RemoveFile(path)
	if err != nil || !removed {
		t.Fatalf("RemoveFile() = %v, %v; want true, nil", removed, err)
	}

	removed, err = RemoveFile(path)
	if err != nil || removed {
		t.Fatalf("second RemoveFile() = %v, %v; want false, nil", removed, err)
	}
}

// =============================================================================
// WIDTH TESTS
// =============================================================================

func TestFitWidth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"pads short", "bob", 6, "bob   "},
		{"exact", "alice", 5, "alice"},
		{"truncates", "maximilian", 8, "maxim..."},
		{"tiny width", "maximilian", 2, "ma"},
		{"zero width", "bob", 0, ""},
		{"wide chars", "日本語", 5, "日..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitWidth(tt.input, tt.width)
			if got != tt.want {
				t.Errorf("FitWidth(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
			if tt.width > 0 && DisplayWidth(got) != tt.width {
				t.Errorf("DisplayWidth(%q) = %d, want %d", got, DisplayWidth(got), tt.width)
			}
		})
	}
}
