package bridge

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vuuvv/rplcui/core"
)

// fakeRplc 按最后一个参数分派, compile 原样输出 stdin
const fakeRplc = `#!/bin/sh
for last; do :; done
case "$last" in
--version)
	echo "rplc 1.2.3"
	;;
check)
	cat > /dev/null
	echo '[{"severity":"warning","message":"unused field"},{"severity":"Error","message":"bad id"},{"severity":"fatal","message":"odd"}]'
	;;
compile)
	cat
	;;
esac
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "rplc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func initialized(t *testing.T, body string, timeout time.Duration) *ExecCompiler {
	t.Helper()
	c := NewExecCompiler(writeScript(t, body), nil, timeout)
	require.NoError(t, c.Initialize(context.Background()))
	return c
}

func TestExecCompiler_Initialize(t *testing.T) {
	t.Run("Should read the version", func(t *testing.T) {
		c := initialized(t, fakeRplc, time.Second)
		assert.Equal(t, "rplc 1.2.3", c.Version())
	})

	t.Run("Should fail when the binary is missing", func(t *testing.T) {
		c := NewExecCompiler(filepath.Join(t.TempDir(), "missing"), nil, time.Second)
		assert.Error(t, c.Initialize(context.Background()))
		assert.Empty(t, c.Version())
	})

	t.Run("Should fail when the version command fails", func(t *testing.T) {
		c := NewExecCompiler(writeScript(t, "#!/bin/sh\necho unsupported >&2\nexit 2\n"), nil, time.Second)
		err := c.Initialize(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})

	t.Run("Should refuse calls before initialization", func(t *testing.T) {
		c := NewExecCompiler(writeScript(t, fakeRplc), nil, time.Second)
		_, err := c.Validate(context.Background(), "{}")
		assert.ErrorContains(t, err, "not initialized")
	})
}

func TestExecCompiler_Validate(t *testing.T) {
	t.Run("Should parse and normalize diagnostics", func(t *testing.T) {
		c := initialized(t, fakeRplc, time.Second)
		diags, err := c.Validate(context.Background(), "{}")
		require.NoError(t, err)
		assert.Equal(t, []core.Diagnostic{
			{Severity: core.SeverityWarning, Message: "unused field"},
			{Severity: core.SeverityError, Message: "bad id"},
			{Severity: core.SeverityError, Message: "odd"},
		}, diags)
	})

	t.Run("Should reject output that is not a diagnostic list", func(t *testing.T) {
		c := initialized(t, "#!/bin/sh\ncase \"$1\" in --version) echo v1;; *) echo 'not json';; esac\n", time.Second)
		_, err := c.Validate(context.Background(), "{}")
		assert.ErrorContains(t, err, "invalid diagnostics")
	})

	t.Run("Should carry stderr of a failed run", func(t *testing.T) {
		c := initialized(t, "#!/bin/sh\ncase \"$1\" in --version) echo v1;; *) echo 'parse error at 1:2' >&2; exit 3;; esac\n", time.Second)
		_, err := c.Validate(context.Background(), "{}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exited with code 3")
		assert.Contains(t, err.Error(), "parse error at 1:2")
	})

	t.Run("Should stop a compiler that runs past the timeout", func(t *testing.T) {
		c := initialized(t, "#!/bin/sh\ncase \"$1\" in --version) echo v1;; *) exec sleep 5;; esac\n", 100*time.Millisecond)
		start := time.Now()
		_, err := c.Validate(context.Background(), "{}")
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 3*time.Second)
	})
}

func TestExecCompiler_Compile(t *testing.T) {
	t.Run("Should pass the JSON on stdin and return stdout", func(t *testing.T) {
		c := initialized(t, fakeRplc, time.Second)
		out, err := c.Compile(context.Background(), `{"packet_name":"Imu"}`)
		require.NoError(t, err)
		assert.Equal(t, `{"packet_name":"Imu"}`, out)
	})

	t.Run("Should put the configured args before the command", func(t *testing.T) {
		path := writeScript(t, "#!/bin/sh\necho \"$@\"\n")
		c := NewExecCompiler(path, []string{"--strict"}, time.Second)
		require.NoError(t, c.Initialize(context.Background()))
		assert.Equal(t, "--strict --version", c.Version())

		out, err := c.Compile(context.Background(), "{}")
		require.NoError(t, err)
		assert.Equal(t, "--strict compile\n", out)
	})

	t.Run("Should compile through the bridge", func(t *testing.T) {
		script := writeScript(t, "#!/bin/sh\nfor last; do :; done\ncase \"$last\" in --version) echo v1;; check) cat >/dev/null; echo '[]';; compile) cat >/dev/null; echo '#pragma once';; esac\n")
		b := New(NewExecCompiler(script, nil, time.Second), 5)
		assert.Empty(t, b.CompilerVersion())
		b.Start(context.Background())
		require.NoError(t, b.WaitReady(context.Background()))

		res := b.Compile(context.Background(), core.Default())
		assert.Empty(t, res.Diagnostics)
		assert.Equal(t, "#pragma once\n", res.Source)
		assert.Equal(t, "v1", b.CompilerVersion())
	})
}
