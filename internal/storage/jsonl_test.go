package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"swapEngine/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.jsonl")
	s := NewJsonlStorage(path)
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	first := model.ExecutionResult{RequestID: "a", Success: true, Mode: "exactInput", TransactionID: "0x01", Timestamp: ts}
	second := model.ExecutionResult{RequestID: "b", Mode: "exactInput", ErrorKind: model.KindNoRoute, Stage: "route", Error: "no route found", Timestamp: ts}

	if err := s.PutResults(context.Background(), []model.ExecutionResult{first}); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := s.PutResults(context.Background(), []model.ExecutionResult{second}); err != nil {
		t.Fatalf("put second: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var row map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines = append(lines, row)
	}
	if len(lines) != 2 {
		t.Fatalf("lines: got %d want 2", len(lines))
	}
	if lines[0]["request_id"] != "a" || lines[0]["success"] != true {
		t.Fatalf("unexpected first line: %v", lines[0])
	}
	if _, ok := lines[0]["error_kind"]; ok {
		t.Fatalf("successful result should omit error_kind: %v", lines[0])
	}
	if lines[1]["error_kind"] != "NoRouteFound" || lines[1]["stage"] != "route" {
		t.Fatalf("unexpected second line: %v", lines[1])
	}
}

type failingSink struct{ calls int }

func (f *failingSink) PutResults(context.Context, []model.ExecutionResult) error {
	f.calls++
	return errors.New("disk full")
}

func TestMultiSinkStopsAtFirstError(t *testing.T) {
	bad := &failingSink{}
	after := &failingSink{}
	err := MultiSink{nil, bad, after}.PutResults(context.Background(), []model.ExecutionResult{{RequestID: "x"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if bad.calls != 1 || after.calls != 0 {
		t.Fatalf("calls: bad=%d after=%d", bad.calls, after.calls)
	}
}
