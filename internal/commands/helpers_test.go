package commands

import (
	"bytes"
	"testing"

	"github.com/diogo/chatstream/internal/api"
	"github.com/diogo/chatstream/internal/tui"
)

type testDeps struct {
	*Dependencies
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	copied  []string
	chats   int
	options tui.Options
	session tui.ChatSession
}

// withTestDeps swaps the package dependencies for fakes and isolates HOME
func withTestDeps(t *testing.T, opener api.StreamOpener) *testDeps {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"CHATSTREAM_ENDPOINT", "CHATSTREAM_PERSONA", "CHATSTREAM_LOG_LEVEL", "CHATSTREAM_FRAMING", "CHATSTREAM_TIMEOUT_SECONDS"} {
		t.Setenv(key, "")
	}

	td := &testDeps{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	td.Dependencies = &Dependencies{
		Opener: opener,
		Stdout: td.stdout,
		Stderr: td.stderr,
		Clipboard: func(s string) error {
			td.copied = append(td.copied, s)
			return nil
		},
		RunChat: func(session tui.ChatSession, opts tui.Options) error {
			td.chats++
			td.session = session
			td.options = opts
			return nil
		},
		IsTTY: func() bool { return false },
	}

	old := deps
	oldOutput, oldFile, oldRaw := outputFlag, fileFlag, rawFlag
	oldDesc, oldPrompt, oldFrom, oldForce := personaDescFlag, personaPromptFlag, personaFromFlag, personaForceFlag
	deps = td.Dependencies
	t.Cleanup(func() {
		deps = old
		outputFlag, fileFlag, rawFlag = oldOutput, oldFile, oldRaw
		personaDescFlag, personaPromptFlag, personaFromFlag, personaForceFlag = oldDesc, oldPrompt, oldFrom, oldForce
	})
	return td
}
