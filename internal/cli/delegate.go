package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/plugsync/plugsync/internal/dispatch"
)

// hostBinary is the host tool's CLI, looked up on PATH.
const hostBinary = "plughost"

// execDelegate invokes the host tool's validator binary and parses its
// JSON report.
type execDelegate struct {
	binary string
}

// newHostDelegate returns the exec-based delegate, or nil when the host
// binary is not installed. A nil delegate makes delegate-host mode fail
// with a clear message and all mode skip the step.
func newHostDelegate() dispatch.HostDelegate {
	path, err := exec.LookPath(hostBinary)
	if err != nil {
		return nil
	}
	return &execDelegate{binary: path}
}

func (e *execDelegate) Invoke(ctx context.Context, name string, payload map[string]any) (*dispatch.DelegateResult, error) {
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode delegate payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.binary, name, "--json", "--payload", string(input))
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("host tool %s failed: %w", name, err)
	}

	var result dispatch.DelegateResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to parse host tool report: %w", err)
	}
	return &result, nil
}
