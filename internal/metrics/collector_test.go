package metrics

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()

	if collector == nil {
		t.Fatal("NewCollector() returned nil")
	}

	snap := collector.Snapshot()
	if snap.Compiles != 0 || snap.Reloads != 0 || snap.ActiveClients != 0 {
		t.Errorf("Expected zero counters, got %+v", snap)
	}
	if snap.StartTime.IsZero() {
		t.Error("StartTime not initialized")
	}
}

func TestCompileMetrics(t *testing.T) {
	collector := NewCollector()

	collector.RecordCompile(100)
	collector.RecordCompile(50)
	collector.RecordCompileError()

	snap := collector.Snapshot()
	if snap.Compiles != 2 {
		t.Errorf("Expected 2 compiles, got %d", snap.Compiles)
	}
	if snap.BytesServed != 150 {
		t.Errorf("Expected 150 bytes served, got %d", snap.BytesServed)
	}
	if snap.CompileErrors != 1 {
		t.Errorf("Expected 1 compile error, got %d", snap.CompileErrors)
	}

	rate := collector.ErrorRate()
	if rate < 33.3 || rate > 33.4 {
		t.Errorf("Expected error rate ~33.33%%, got %f", rate)
	}
}

func TestErrorRateNoCompiles(t *testing.T) {
	if rate := NewCollector().ErrorRate(); rate != 0.0 {
		t.Errorf("Expected error rate 0 with no compiles, got %f", rate)
	}
}

func TestClientMetrics(t *testing.T) {
	collector := NewCollector()

	collector.ClientConnected()
	collector.ClientConnected()
	collector.ClientConnected()
	collector.ClientDisconnected()
	collector.RecordReload()

	snap := collector.Snapshot()
	if snap.ActiveClients != 2 {
		t.Errorf("Expected 2 active clients, got %d", snap.ActiveClients)
	}
	// Max concurrent should remain the same
	if snap.MaxActiveClients != 3 {
		t.Errorf("Expected max active clients 3, got %d", snap.MaxActiveClients)
	}
	if snap.Reloads != 1 {
		t.Errorf("Expected 1 reload, got %d", snap.Reloads)
	}
}

func TestConcurrentRecording(t *testing.T) {
	collector := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.ClientConnected()
			collector.RecordCompile(1)
			collector.ClientDisconnected()
		}()
	}
	wg.Wait()

	snap := collector.Snapshot()
	if snap.Compiles != 100 {
		t.Errorf("Expected 100 compiles, got %d", snap.Compiles)
	}
	if snap.ActiveClients != 0 {
		t.Errorf("Expected 0 active clients, got %d", snap.ActiveClients)
	}
	if snap.MaxActiveClients < 1 {
		t.Errorf("Expected max active clients >= 1, got %d", snap.MaxActiveClients)
	}
}

func TestSnapshotJSON(t *testing.T) {
	collector := NewCollector()
	collector.RecordCompile(10)

	data, err := json.Marshal(collector.Snapshot())
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}

	for _, field := range []string{`"compiles":1`, `"bytes_served":10`, `"max_active_clients":0`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("JSON %s missing %s", data, field)
		}
	}
}
