// SPDX-License-Identifier: Apache-2.0

// Package signature canonicalizes tool calls and results into stable,
// order-independent digests for stagnation analysis.
package signature

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jllopis/telos/pkg/core"
)

// placeholder is the digest fragment used for values that cannot be
// canonicalized (cycles, exotic types). Hashing never fails.
const placeholder = "<unhashable>"

// maxDepth bounds canonicalization recursion so cyclic argument graphs
// degrade to the placeholder instead of recursing forever.
const maxDepth = 32

// HashArgs produces a stable digest of an argument object. Semantically
// identical maps built in different key orders hash equal.
func HashArgs(args map[string]any) string {
	return sum(canonicalize(args, 0))
}

// CallKey builds the stagnation comparison signature for a call.
func CallKey(name string, args map[string]any) core.CallSignature {
	return core.CallSignature{
		ToolName:  name,
		ArgHash:   HashArgs(args),
		Timestamp: time.Now(),
	}
}

// ResultDigest produces a comparable digest of a result's outcome so two
// results of unrelated calls can be compared for "same outcome".
func ResultDigest(result core.ExecutionResult) string {
	parts := canonicalize(result.Output, 0) + "|" + result.Error + "|" + canonicalize(result.Context, 0)
	return sum(strconv.FormatBool(result.Success) + "|" + parts)
}

func sum(canonical string) string {
	return strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}

// canonicalize renders a value into a deterministic string form with
// map keys sorted. It is total: anything it cannot represent becomes
// the placeholder.
func canonicalize(value any, depth int) string {
	if depth > maxDepth {
		return placeholder
	}
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case []any:
		out := "["
		for i, item := range v {
			if i > 0 {
				out += ","
			}
			out += canonicalize(item, depth+1)
		}
		return out + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := "{"
		for i, key := range keys {
			if i > 0 {
				out += ","
			}
			out += strconv.Quote(key) + ":" + canonicalize(v[key], depth+1)
		}
		return out + "}"
	case fmt.Stringer:
		return strconv.Quote(v.String())
	case error:
		return strconv.Quote(v.Error())
	default:
		return placeholder
	}
}
