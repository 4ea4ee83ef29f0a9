// SPDX-License-Identifier: Apache-2.0

// Package stagnation detects when the reasoning oracle is repeating itself
// without making progress toward a terminal answer.
//
// The detector runs five independent, cheap heuristics over a sliding window
// of executed calls: blind repetition, A/B ping-pong cycles, low success with
// repetitive outputs, persistent similar failures, and rapid-fire bursts.
// Each heuristic is sufficient on its own; the highest-confidence verdict
// wins. The detector is stateless: callers pass the window in, so it is
// side-effect free and trivially testable.
package stagnation

import (
	"fmt"
	"strings"
	"time"

	"github.com/jllopis/telos/pkg/core"
)

// Record is one entry of the detection window: the signature of an executed
// call plus, when available, a digest of its outcome.
type Record struct {
	Signature core.CallSignature

	// HasResult reports whether the call has an execution result yet.
	HasResult bool

	Success      bool
	OutputDigest string
	ErrorMessage string
}

// Verdict is the outcome of a stagnation evaluation.
type Verdict struct {
	Stagnant   bool
	Reason     string
	Confidence float64
}

// Config tunes the five heuristics.
type Config struct {
	// RepeatWindow is how many recent signatures the repetition check sees.
	RepeatWindow int
	// RepeatThreshold is the occurrence count that flags repetition.
	RepeatThreshold int

	// CycleThreshold is the pattern match count that flags a cycle.
	CycleThreshold int

	// ResultWindow is how many recent results the no-progress check sees.
	ResultWindow int
	// SuccessRateFloor is the success rate below which progress is doubted.
	SuccessRateFloor float64
	// DistinctOutputFloor is the distinct-output ratio below which outputs
	// count as repetitive.
	DistinctOutputFloor float64

	// ErrorWindow is how many recent results the error-loop check sees.
	ErrorWindow int
	// ErrorSimilarity is the minimum word-set Jaccard similarity for two
	// error messages to group together.
	ErrorSimilarity float64
	// ErrorLoopThreshold is the group size that flags an error loop.
	ErrorLoopThreshold int

	// BurstWindow and BurstSpan flag when the last BurstWindow signatures
	// span less than BurstSpan of wall-clock time.
	BurstWindow int
	BurstSpan   time.Duration
	// DisableBurstCheck toggles the time-based heuristic off.
	DisableBurstCheck bool
}

// DefaultConfig returns the default heuristic tuning.
func DefaultConfig() Config {
	return Config{
		RepeatWindow:        5,
		RepeatThreshold:     4,
		CycleThreshold:      4,
		ResultWindow:        5,
		SuccessRateFloor:    0.4,
		DistinctOutputFloor: 0.3,
		ErrorWindow:         8,
		ErrorSimilarity:     0.75,
		ErrorLoopThreshold:  4,
		BurstWindow:         5,
		BurstSpan:           5 * time.Second,
	}
}

// Detector evaluates call windows against the configured heuristics.
type Detector struct {
	cfg Config
}

// New creates a detector. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.RepeatWindow <= 0 {
		cfg.RepeatWindow = def.RepeatWindow
	}
	if cfg.RepeatThreshold <= 0 {
		cfg.RepeatThreshold = def.RepeatThreshold
	}
	if cfg.CycleThreshold <= 0 {
		cfg.CycleThreshold = def.CycleThreshold
	}
	if cfg.ResultWindow <= 0 {
		cfg.ResultWindow = def.ResultWindow
	}
	if cfg.SuccessRateFloor <= 0 {
		cfg.SuccessRateFloor = def.SuccessRateFloor
	}
	if cfg.DistinctOutputFloor <= 0 {
		cfg.DistinctOutputFloor = def.DistinctOutputFloor
	}
	if cfg.ErrorWindow <= 0 {
		cfg.ErrorWindow = def.ErrorWindow
	}
	if cfg.ErrorSimilarity <= 0 {
		cfg.ErrorSimilarity = def.ErrorSimilarity
	}
	if cfg.ErrorLoopThreshold <= 0 {
		cfg.ErrorLoopThreshold = def.ErrorLoopThreshold
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = def.BurstWindow
	}
	if cfg.BurstSpan <= 0 {
		cfg.BurstSpan = def.BurstSpan
	}
	return &Detector{cfg: cfg}
}

// Evaluate runs every heuristic against the window plus the new call and
// returns the single highest-confidence stagnation verdict, ties broken by
// check order. Returns a non-stagnant verdict with confidence 0 when no
// heuristic fires.
func (d *Detector) Evaluate(window []Record, next core.CallSignature) Verdict {
	signatures := make([]core.CallSignature, 0, len(window)+1)
	for _, rec := range window {
		signatures = append(signatures, rec.Signature)
	}
	signatures = append(signatures, next)

	checks := []Verdict{
		d.checkRepeatedCalls(signatures),
		d.checkCyclicPattern(signatures),
		d.checkNoProgress(window),
		d.checkErrorLoops(window),
		d.checkBurst(signatures),
	}

	best := Verdict{}
	for _, v := range checks {
		if v.Stagnant && v.Confidence > best.Confidence {
			best = v
		}
	}
	return best
}

// checkRepeatedCalls flags any (tool, argHash) pair recurring within the
// most recent RepeatWindow signatures.
func (d *Detector) checkRepeatedCalls(signatures []core.CallSignature) Verdict {
	recent := tail(signatures, d.cfg.RepeatWindow)
	counts := make(map[string]int, len(recent))
	var topKey string
	top := 0
	for _, sig := range recent {
		key := sig.ToolName + "\x00" + sig.ArgHash
		counts[key]++
		if counts[key] > top {
			top = counts[key]
			topKey = sig.ToolName
		}
	}
	if top < d.cfg.RepeatThreshold {
		return Verdict{}
	}
	confidence := capConfidence(0.75 * float64(top) / float64(d.cfg.RepeatThreshold))
	return Verdict{
		Stagnant:   true,
		Reason:     fmt.Sprintf("call %s repeated %d times with identical arguments", topKey, top),
		Confidence: confidence,
	}
}

// checkCyclicPattern looks for a trailing repeating sequence of tool names
// of length 2 to 4, e.g. A,B,A,B,A,B.
func (d *Detector) checkCyclicPattern(signatures []core.CallSignature) Verdict {
	names := make([]string, len(signatures))
	for i, sig := range signatures {
		names[i] = sig.ToolName
	}

	best := Verdict{}
	for patternLen := 2; patternLen <= 4; patternLen++ {
		matches := trailingPatternCount(names, patternLen)
		if matches < d.cfg.CycleThreshold {
			continue
		}
		confidence := capConfidence(float64(matches) / float64(d.cfg.CycleThreshold))
		if confidence > best.Confidence {
			pattern := strings.Join(names[len(names)-patternLen:], ",")
			best = Verdict{
				Stagnant:   true,
				Reason:     fmt.Sprintf("cyclic pattern [%s] repeated %d times", pattern, matches),
				Confidence: confidence,
			}
		}
	}
	return best
}

// trailingPatternCount counts how many times the last patternLen names
// repeat contiguously at the end of the sequence.
func trailingPatternCount(names []string, patternLen int) int {
	if len(names) < 2*patternLen {
		return 0
	}
	pattern := names[len(names)-patternLen:]
	count := 0
	for end := len(names); end >= patternLen; end -= patternLen {
		window := names[end-patternLen : end]
		match := true
		for i := range pattern {
			if window[i] != pattern[i] {
				match = false
				break
			}
		}
		if !match {
			break
		}
		count++
	}
	return count
}

// checkNoProgress flags a low success rate combined with repetitive outputs
// over the most recent results.
func (d *Detector) checkNoProgress(window []Record) Verdict {
	results := recentResults(window, d.cfg.ResultWindow)
	if len(results) < d.cfg.ResultWindow {
		return Verdict{}
	}

	successes := 0
	distinct := make(map[string]struct{}, len(results))
	for _, rec := range results {
		if rec.Success {
			successes++
		}
		digest := rec.OutputDigest
		if digest == "" {
			digest = rec.ErrorMessage
		}
		distinct[digest] = struct{}{}
	}

	successRate := float64(successes) / float64(len(results))
	distinctRatio := float64(len(distinct)) / float64(len(results))
	if successRate >= d.cfg.SuccessRateFloor || distinctRatio >= d.cfg.DistinctOutputFloor {
		return Verdict{}
	}
	return Verdict{
		Stagnant:   true,
		Reason:     "low success rate with repetitive outputs",
		Confidence: 0.8,
	}
}

// checkErrorLoops groups recent failures of the same tool by error-message
// similarity and flags any group that grows past the threshold.
func (d *Detector) checkErrorLoops(window []Record) Verdict {
	results := recentResults(window, d.cfg.ErrorWindow)

	type group struct {
		tool  string
		words map[string]struct{}
		size  int
	}
	var groups []*group
	for _, rec := range results {
		if rec.Success {
			continue
		}
		words := wordSet(rec.ErrorMessage)
		placed := false
		for _, g := range groups {
			if g.tool != rec.Signature.ToolName {
				continue
			}
			if jaccard(g.words, words) >= d.cfg.ErrorSimilarity {
				g.size++
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &group{tool: rec.Signature.ToolName, words: words, size: 1})
		}
	}

	best := Verdict{}
	for _, g := range groups {
		if g.size < d.cfg.ErrorLoopThreshold {
			continue
		}
		confidence := capConfidence(0.85 + 0.05*float64(g.size-d.cfg.ErrorLoopThreshold))
		if confidence > best.Confidence {
			best = Verdict{
				Stagnant:   true,
				Reason:     fmt.Sprintf("tool %s failing repeatedly with similar errors (%d times)", g.tool, g.size),
				Confidence: confidence,
			}
		}
	}
	return best
}

// checkBurst flags rapid-fire calls: the most recent BurstWindow signatures
// spanning less than BurstSpan of wall-clock time.
func (d *Detector) checkBurst(signatures []core.CallSignature) Verdict {
	if d.cfg.DisableBurstCheck {
		return Verdict{}
	}
	recent := tail(signatures, d.cfg.BurstWindow)
	if len(recent) < d.cfg.BurstWindow {
		return Verdict{}
	}
	span := recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp)
	if span < 0 || span >= d.cfg.BurstSpan {
		return Verdict{}
	}
	return Verdict{
		Stagnant:   true,
		Reason:     "rapid-fire calls",
		Confidence: 0.7,
	}
}

func recentResults(window []Record, n int) []Record {
	results := make([]Record, 0, n)
	for i := len(window) - 1; i >= 0 && len(results) < n; i-- {
		if window[i].HasResult {
			results = append(results, window[i])
		}
	}
	// Restore chronological order.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results
}

func tail(signatures []core.CallSignature, n int) []core.CallSignature {
	if len(signatures) <= n {
		return signatures
	}
	return signatures[len(signatures)-n:]
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func capConfidence(c float64) float64 {
	if c > 1.0 {
		return 1.0
	}
	return c
}
