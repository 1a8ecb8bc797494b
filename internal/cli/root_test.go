package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "irflow", cmd.Use)
	assert.Contains(t, cmd.Long, "state machines")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"list", "dump", "run", "browse"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	levelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, levelFlag)
	assert.Equal(t, "warn", levelFlag.DefValue)

	pooledFlag := cmd.PersistentFlags().Lookup("pooled")
	require.NotNil(t, pooledFlag)
	assert.Equal(t, "false", pooledFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "list", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "quotient(a: int, b: int) -> int")
	assert.Contains(t, out, "ticks(n: int) -> int async")
}

func TestList_JSON(t *testing.T) {
	out, err := execute(t, "list", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []procedureInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 6)
	assert.Equal(t, "collatz", resp.Data[0].Name)
}

func TestDump(t *testing.T) {
	lowered, err := execute(t, "dump", "ticks")
	require.NoError(t, err)
	assert.Contains(t, lowered, "machine ticks")

	draft, err := execute(t, "dump", "ticks", "--draft")
	require.NoError(t, err)
	assert.NotContains(t, draft, "machine ticks")
	assert.Contains(t, draft, "lambda ticks(n:int) int async")
}

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "sync", args: []string{"run", "sum", "5"}, want: "10\n"},
		{name: "async", args: []string{"run", "ticks", "3"}, want: "6\n"},
		{name: "pooled", args: []string{"run", "--pooled", "ticks", "3"}, want: "6\n"},
		{name: "caught", args: []string{"run", "lookup", "zeta"}, want: "<missing>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	_, err := execute(t, "run", "nope")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "run", "sum", "x")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "run", "collatz", "0")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "must be positive")
}

func TestRun_JSONFault(t *testing.T) {
	out, err := execute(t, "run", "--format", "json", "collatz", "0")
	require.Error(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "must be positive")
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "irflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: json\npooled: true\nlog_level: error\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{LogLevel: "error", Format: "json", Pooled: true}, cfg)

	out, err := execute(t, "--config", path, "run", "sum", "3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":3}`, out)

	out, err = execute(t, "--config", path, "--format", "text", "run", "sum", "3")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestConfig_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("colour: blue\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	_, err = execute(t, "--config", path, "list")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBrowse_RequiresTerminal(t *testing.T) {
	_, err := execute(t, "browse")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
