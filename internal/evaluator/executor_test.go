package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/cardsight/internal/card"
)

func writeScript(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func testRequest() *Request {
	return NewRequest(
		[][]card.Rank{{card.Ace, card.Six}, {card.Ten, card.Seven}},
		[]card.Rank{card.Nine},
		map[card.Rank]int{card.Ace: 3, card.Six: 3},
		1.5,
	)
}

func TestNewRequest(t *testing.T) {
	req := testRequest()

	if len(req.PlayerHands) != 2 || req.PlayerHands[0][0] != "A" || req.PlayerHands[1][0] != "10" {
		t.Errorf("unexpected player hands: %v", req.PlayerHands)
	}
	if len(req.DealerHand) != 1 || req.DealerHand[0] != "9" {
		t.Errorf("unexpected dealer hand: %v", req.DealerHand)
	}
	if req.Counts["A"] != 3 {
		t.Errorf("expected 3 aces, got %d", req.Counts["A"])
	}
	if req.TrueCount != 1.5 {
		t.Errorf("expected true count 1.5, got %v", req.TrueCount)
	}
}

func TestExecutor_Evaluate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := writeScript(t, "ev.sh", `#!/bin/sh
echo '{"success":true,"advice":[{"hand":0,"evs":{"hit":-0.1,"stand":0.2},"best":"stand"}]}'
`)

	resp, err := NewExecutor(5*time.Second, script).Evaluate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	if !resp.Success {
		t.Errorf("expected success=true, got false")
	}
	if len(resp.Advice) != 1 || resp.Advice[0].Best != "stand" {
		t.Fatalf("unexpected advice: %+v", resp.Advice)
	}
	if resp.Advice[0].EVs["stand"] != 0.2 {
		t.Errorf("expected stand EV 0.2, got %v", resp.Advice[0].EVs["stand"])
	}
}

func TestExecutor_Evaluate_ReadsStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	// The script only succeeds when it sees the dealer up-card.
	script := writeScript(t, "echo.sh", `#!/bin/sh
INPUT=$(cat)
case "$INPUT" in
  *'"dealer_hand":["9"]'*) echo '{"success":true}' ;;
  *) echo '{"success":false,"error":"unexpected input"}' ;;
esac
`)

	resp, err := NewExecutor(5*time.Second, script).Evaluate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !resp.Success {
		t.Errorf("evaluator did not receive the request: %s", resp.Error)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := writeScript(t, "slow.sh", `#!/bin/sh
sleep 10
echo '{"success":true}'
`)

	_, err := NewExecutor(100*time.Millisecond, script).Evaluate(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout-related error, got: %v", err)
	}
}

func TestExecutor_Evaluate_Failures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tests := []struct {
		name   string
		script string
	}{
		{"invalid json", "#!/bin/sh\necho 'not valid json'\n"},
		{"non-zero exit", "#!/bin/sh\necho 'Error: something failed' >&2\nexit 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, "bad.sh", tt.script)

			if _, err := NewExecutor(5*time.Second, script).Evaluate(context.Background(), testRequest()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}

	t.Run("error response", func(t *testing.T) {
		script := writeScript(t, "err.sh", "#!/bin/sh\necho '{\"success\":false,\"error\":\"no shoe\"}'\n")

		resp, err := NewExecutor(5*time.Second, script).Evaluate(context.Background(), testRequest())
		if err != nil {
			t.Fatalf("Evaluate() failed: %v", err)
		}
		if resp.Success || resp.Error != "no shoe" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestMockEvaluator(t *testing.T) {
	var _ Evaluator = (*MockEvaluator)(nil)
	var _ Evaluator = (*Executor)(nil)

	m := NewMockEvaluator(&Response{Success: true})
	if _, err := m.Evaluate(context.Background(), testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Requests()) != 1 {
		t.Errorf("expected 1 recorded request, got %d", len(m.Requests()))
	}
}
