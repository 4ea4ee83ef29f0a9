// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
)

// ExecuteSequential runs the batch strictly in proposal order and halts at
// the first failure, leaving the remaining calls unexecuted and unreported.
// No dependency graph is built. This is a deliberately simpler contract than
// the parallel mode's per-branch cascade, for callers that prioritize
// determinism over throughput.
func (s *Scheduler) ExecuteSequential(ctx context.Context, batch []core.ProposedCall, state *core.TurnState) []core.ExecutionResult {
	var results []core.ExecutionResult
	for _, call := range batch {
		t, ok := s.registry.Get(call.Name)
		if !ok {
			results = append(results, failureResult(call.Name, errors.KindToolNotFound,
				fmt.Sprintf("tool not found: %s", call.Name)))
			s.logger.Warn("halting sequential batch", slog.String("tool", call.Name))
			break
		}
		result := s.runCall(ctx, call, t, state)
		results = append(results, result)
		if !result.Success {
			s.logger.Warn("halting sequential batch",
				slog.String("tool", call.Name),
				slog.String("error", result.Error),
			)
			break
		}
	}
	return results
}
