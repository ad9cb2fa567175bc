package clickhouse

import (
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host: "ch", Port: 9000, Database: "bitdca", User: "u", Password: "p",
		DialTimeout: 5 * time.Second, ReadTimeout: 10 * time.Second,
		MaxExecTime: 30 * time.Second, AsyncInsert: true, WaitForAsync: true,
	}
	want := "clickhouse://u:p@ch:9000/bitdca?dial_timeout=5s&read_timeout=10s&max_execution_time=30&async_insert=1&wait_for_async_insert=1"
	if got := buildDSN(cfg); got != want {
		t.Fatalf("dsn mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	got := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "d", UseHTTP: true})
	if got != "http://:@ch:8123/d" {
		t.Fatalf("got %s", got)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatalf("expected error without host")
	}
}
