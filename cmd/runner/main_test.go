package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const sumSource = `#include <stdio.h>
int main() { int a, b; scanf("%d %d", &a, &b); printf("%d", a + b); return 0; }`

// execute runs the CLI in-process with a heuristic backend.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("RUNNER_BACKEND", "heuristic")
	t.Setenv("CACHE_MODE", "none")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeSource(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.c")
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))
	return path
}

func TestRun_FromFile(t *testing.T) {
	out, _, err := execute(t, "", "run", writeSource(t, sumSource), "--stdin", "5 3")
	require.NoError(t, err)
	assert.Equal(t, "8", out)
}

func TestRun_FromStdin(t *testing.T) {
	out, _, err := execute(t, `int main() { printf("Hello, World!"); }`, "run")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", out)
}

func TestRun_CompileErrorSetsExitStatus(t *testing.T) {
	_, errOut, err := execute(t, "int main() { return 0", "run", "-")

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.Contains(t, errOut, "expected ';'")
}

func TestRun_MissingFile(t *testing.T) {
	_, _, err := execute(t, "", "run", filepath.Join(t.TempDir(), "nope.c"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_UnknownBackend(t *testing.T) {
	_, _, err := execute(t, sumSource, "run", "--backend", "gcc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "gcc"`)
}

func TestJudge_Accepted(t *testing.T) {
	out, _, err := execute(t, "", "judge", "sum-two-numbers", writeSource(t, sumSource))
	require.NoError(t, err)
	assert.Contains(t, out, "CASE")
	assert.Contains(t, out, "Accepted (3/3 passed)")
}

func TestJudge_WrongAnswerExitsNonZero(t *testing.T) {
	out, _, err := execute(t, `int main() { printf("Hello, World!"); }`, "judge", "sum-two-numbers", "--show-input")

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.Contains(t, out, "INPUT")
	assert.Contains(t, out, "Wrong Answer (0/3 passed)")
}

func TestJudge_UnknownProblem(t *testing.T) {
	_, _, err := execute(t, sumSource, "judge", "fizzbuzz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no problem "fizzbuzz"`)
}

func TestProblems(t *testing.T) {
	out, _, err := execute(t, "", "problems")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "DIFFICULTY")
	assert.Contains(t, out, "hello-world")
	assert.Contains(t, out, "Swap with Pointers")
}

func TestHashPassword(t *testing.T) {
	out, _, err := execute(t, "s3cret\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestHashPassword_Empty(t *testing.T) {
	_, _, err := execute(t, "", "hash-password")
	assert.Error(t, err)
}
