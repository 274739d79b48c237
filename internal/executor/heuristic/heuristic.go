// Package heuristic implements the local "compiler": a fixed table of source
// patterns mapped to canned or stdin-derived output.
//
// THIS IS NOT A COMPILER.
// Nothing here parses C, type-checks it or executes it. Each rule is a handful
// of strings.Contains checks on the source text plus, at most, integer
// extraction from stdin. That is enough for the practice problems on the site
// (sum, reverse, swap, array max, hello world) and deliberately nothing more.
// Anything that needs a real toolchain should use the docker or judge0 backend.
//
// RULE ORDER MATTERS:
// Rules are evaluated top to bottom and the first match wins. A program that
// mentions both "swap" and "scanf(...) + ..." is treated as a swap program.
package heuristic

import (
	"context"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/sakif/coderunner/internal/executor"
)

// SyntaxErrorMessage is returned on stderr when the source looks unterminated.
const SyntaxErrorMessage = "error: expected ';' after expression"

// Fallback outputs when no rule matches.
const (
	fallbackInputPrefix = "Input processed: "
	fallbackFinished    = "Program finished."
)

// integerPattern extracts signed integers from stdin.
var integerPattern = regexp.MustCompile(`-?\d+`)

// rule is one row of the lookup table.
type rule struct {
	name  string
	match func(code string) bool
	eval  func(stdin string) string
}

// rules is evaluated in order; the first rule whose match returns true produces
// the program's stdout.
var rules = []rule{
	{
		name:  "pointer-swap",
		match: containsAll("swap", "*"),
		eval: func(stdin string) string {
			nums := integerPattern.FindAllString(stdin, -1)
			if len(nums) < 2 {
				return "20 10"
			}
			return nums[1] + " " + nums[0]
		},
	},
	{
		name: "string-reverse",
		match: func(code string) bool {
			return strings.Contains(code, "reverse") || strings.Contains(code, "strrev")
		},
		eval: reverse,
	},
	{
		name:  "sum",
		match: containsAll("scanf", "+"),
		eval: func(stdin string) string {
			nums := parseIntegers(stdin)
			if len(nums) == 0 {
				return ""
			}
			sum := new(big.Int)
			for _, n := range nums {
				sum.Add(sum, n)
			}
			return sum.String()
		},
	},
	{
		name:  "hello-world",
		match: containsAll(`printf("Hello, World!"`),
		eval:  func(string) string { return "Hello, World!" },
	},
	{
		name:  "array-max",
		match: containsAll("arr", "max"),
		eval: func(stdin string) string {
			nums := parseIntegers(stdin)
			if len(nums) == 0 {
				return ""
			}
			maxVal := nums[0]
			for _, n := range nums[1:] {
				if n.Cmp(maxVal) > 0 {
					maxVal = n
				}
			}
			return maxVal.String()
		},
	},
}

// Executor is the heuristic backend. It has no state, so the zero value is
// ready to use and safe for concurrent calls.
type Executor struct{}

var _ executor.Executor = (*Executor)(nil)

// New returns a heuristic Executor.
func New() *Executor {
	return &Executor{}
}

// Execute runs the rule table against req. It never returns an error: the worst
// case is a plausible-looking but wrong answer.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	start := time.Now()
	res := Simulate(req.Code, req.Stdin)
	res.Duration = time.Since(start)
	return &res, nil
}

// Simulate is the pure form of Execute.
func Simulate(code, stdin string) executor.ExecutionResult {
	if !strings.Contains(code, ";") && !strings.Contains(code, "}") {
		return executor.ExecutionResult{
			Stderr:        SyntaxErrorMessage,
			ExitCode:      1,
			CompileOutput: SyntaxErrorMessage,
		}
	}

	if r, ok := lookup(code); ok {
		return executor.ExecutionResult{Stdout: r.eval(stdin)}
	}

	if stdin != "" {
		return executor.ExecutionResult{Stdout: fallbackInputPrefix + stdin}
	}
	return executor.ExecutionResult{Stdout: fallbackFinished}
}

// lookup returns the first rule whose pattern appears in code.
func lookup(code string) (rule, bool) {
	for _, r := range rules {
		if r.match(code) {
			return r, true
		}
	}
	return rule{}, false
}

// RuleName names the rule that would handle code, or "" for the fallback.
// Used for logging only.
func RuleName(code string) string {
	r, _ := lookup(code)
	return r.name
}

func containsAll(fragments ...string) func(string) bool {
	return func(code string) bool {
		for _, f := range fragments {
			if !strings.Contains(code, f) {
				return false
			}
		}
		return true
	}
}

func parseIntegers(s string) []*big.Int {
	matches := integerPattern.FindAllString(s, -1)
	nums := make([]*big.Int, 0, len(matches))
	for _, m := range matches {
		n, ok := new(big.Int).SetString(m, 10)
		if !ok {
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
