package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	exportdomain "babytrack-go/internal/domain/export"
	"babytrack-go/internal/domain/records"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--baby", " b1 ", "--user=u1", "-o", "-"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if opts.babyID != "b1" || opts.userID != "u1" || opts.out != "-" || opts.s3 {
		t.Fatalf("unexpected options %+v", opts)
	}

	if _, err := parseFlags([]string{"--baby", "b1"}); err == nil {
		t.Fatalf("expected error without --user")
	}
	if _, err := parseFlags([]string{"--baby", "b1", "--user", "u1", "--s3", "--out", "x.json"}); err == nil {
		t.Fatalf("expected error for --out with --s3")
	}
	if _, err := parseFlags([]string{"--baby", "b1", "--user", "u1", "extra"}); err == nil {
		t.Fatalf("expected error for positional argument")
	}
}

func TestWriteSnapshot(t *testing.T) {
	snapshot := &exportdomain.Snapshot{
		Feeding:    []records.Feeding{{Meta: records.Meta{ID: "f1"}, Type: records.FeedingFormula}},
		Sleep:      []records.Sleep{},
		Diaper:     []records.Diaper{},
		Health:     []records.Health{},
		ExportDate: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	var stdout bytes.Buffer
	if err := writeSnapshot(snapshot, "-", &stdout); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := decoded["exportDate"]; !ok {
		t.Fatalf("expected exportDate in %s", stdout.String())
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "out.json")
	stdout.Reset()
	if err := writeSnapshot(snapshot, target, &stdout); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.TrimSpace(stdout.String()) != target {
		t.Fatalf("expected path printed, got %q", stdout.String())
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected file written: %v", err)
	}
}
