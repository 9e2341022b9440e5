// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package util_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mflvn/AKI-Detection-System/internal/util"
)

func TestCheckFileExists(t *testing.T) {
	tmpdir := t.TempDir()
	if !util.CheckFileExists(tmpdir) {
		t.Fatal("expected true, got false")
	}

	filePath := filepath.Join(tmpdir, "message_log.csv")

	if err := os.WriteFile(filePath, []byte("timestamp,type,mrn,additional_info\n"), 0666); err != nil {
		t.Fatal(err)
	}
	if !util.CheckFileExists(filePath) {
		t.Fatal("expected true, got false")
	}

	filePath = filepath.Join(tmpdir, "missing.csv")
	if util.CheckFileExists(filePath) {
		t.Fatal("expected false, got true")
	}
}

func TestGetFileSize(t *testing.T) {
	tmpdir := t.TempDir()
	filePath := filepath.Join(tmpdir, "message_log.csv")

	if s := util.GetFilesize(filePath); s > 0 {
		t.Fatalf("expected 0, got %d", s)
	}

	if err := os.WriteFile(filePath, []byte("timestamp,type,mrn,additional_info\n"), 0666); err != nil {
		t.Fatal(err)
	}
	if s := util.GetFilesize(filePath); s == 0 {
		t.Fatal("expected not 0, got 0")
	}
}

func TestDiskUsage(t *testing.T) {
	tmpdir := t.TempDir()

	if u := util.DiskUsage(tmpdir); u != 0 {
		t.Fatalf("expected 0, got %f", u)
	}

	filePath := filepath.Join(tmpdir, "data.csv")
	if err := os.WriteFile(filePath, make([]byte, 2048), 0666); err != nil {
		t.Fatal(err)
	}
	if u := util.DiskUsage(tmpdir); u == 0 {
		t.Fatal("expected not 0, got 0")
	}
}
