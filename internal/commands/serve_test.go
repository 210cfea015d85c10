package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/diogo/chatstream/internal/api"
)

func TestServeCommand_Flags(t *testing.T) {
	tests := []struct {
		name string
		def  string
	}{
		{"addr", "127.0.0.1:8787"},
		{"delay", "50ms"},
		{"fail-status", "0"},
		{"noise", "false"},
		{"reply", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := serveCmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %s not found", tt.name)
			}
			if flag.DefValue != tt.def {
				t.Errorf("default = %q, want %q", flag.DefValue, tt.def)
			}
		})
	}
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	td := withTestDeps(t, &api.MockStreamOpener{})

	oldAddr := serveAddrFlag
	serveAddrFlag = "127.0.0.1:0"
	t.Cleanup(func() { serveAddrFlag = oldAddr })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	if !strings.Contains(td.stderr.String(), "Serving /api/chat") {
		t.Errorf("stderr = %q", td.stderr.String())
	}
}
