package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/shelf"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

// testEnv is an isolated config and data directory pair.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

// result holds the outcome of one command run.
type result struct {
	stdout string
	stderr string
	code   int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	var stdout, stderr syncBuffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	all := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(root, all, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	r := e.run(args...)
	require.Equal(e.t, exitSuccess, r.code, "shelf %v failed: %s", args, r.stderr)
	return r
}

func decodeJSON(t *testing.T, s string, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(s), target), "output: %s", s)
}

func TestCLI_Version(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("version")
	assert.Contains(t, r.stdout, "shelf v")
	assert.Contains(t, r.stdout, modulePath)
}

func TestCLI_Init(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("init")
	assert.Contains(t, r.stdout, "Shelf initialized")
	assert.FileExists(t, filepath.Join(env.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(env.dataDir, "shelf.db"))

	data, err := os.ReadFile(filepath.Join(env.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "store: sqlite")
	assert.Contains(t, string(data), "poll_interval: 2s")

	env.mustRun("init")
}

func TestCLI_SetAndGetTypedValues(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "count", "42")
	env.mustRun("set", "greeting", "hello")
	env.mustRun("set", "literal", "42", "--text")

	var out valueOutput
	decodeJSON(t, env.mustRun("--json", "get", "count").stdout, &out)
	assert.Equal(t, "number", out.Kind)
	assert.Equal(t, 42.0, out.Value)
	assert.True(t, out.Present)

	assert.Equal(t, "hello\n", env.mustRun("get", "greeting").stdout)

	// Text that looks like a number reads back as a number.
	decodeJSON(t, env.mustRun("--json", "get", "literal").stdout, &out)
	assert.Equal(t, "number", out.Kind)
}

func TestCLI_GetMissingKey(t *testing.T) {
	env := newTestEnv(t)
	r := env.run("get", "nope")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "not found")

	r = env.mustRun("get", "nope", "--default", "fallback")
	assert.Equal(t, "fallback\n", r.stdout)
}

func TestCLI_Paths(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "cart", `{"items":[{"sku":"a1","qty":1}]}`)
	env.mustRun("set", "cart", "3", "--path", "items.0.qty")
	env.mustRun("set", "cart", `{"sku":"b2","qty":1}`, "--path", "items.-1")

	assert.Equal(t, "3\n", env.mustRun("get", "cart", "--path", "items.0.qty").stdout)
	assert.Equal(t, "b2\n", env.mustRun("get", "cart", "--path", "items.1.sku").stdout)

	r := env.run("get", "cart", "--path", "items.9.sku")
	assert.Equal(t, exitUserError, r.code)

	env.mustRun("set", "plain", "text")
	r = env.run("set", "plain", "1", "--path", "a")
	assert.Equal(t, exitUserError, r.code)
}

func TestCLI_RemoveAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "a", "1")
	env.mustRun("set", "b", "2")

	env.mustRun("rm", "a")
	assert.Equal(t, exitUserError, env.run("get", "a").code)

	env.mustRun("clear")
	var items []itemOutput
	decodeJSON(t, env.mustRun("--json", "list").stdout, &items)
	assert.Empty(t, items)
}

func TestCLI_List(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "b", `[1,2]`)
	env.mustRun("set", "a", "hello")

	var items []itemOutput
	decodeJSON(t, env.mustRun("--json", "list").stdout, &items)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Key)
	assert.Equal(t, "text", items[0].Kind)
	assert.Equal(t, 5, items[0].Size)
	assert.Equal(t, "list", items[1].Kind)

	table := env.mustRun("list").stdout
	assert.Contains(t, table, "hello")
	assert.Contains(t, strings.ToLower(table), "2 keys")
}

func TestCLI_SessionLivesForOneProcess(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "tmp", "x", "--backend", "session")
	assert.Equal(t, exitUserError, env.run("get", "tmp", "--backend", "session").code)
}

func TestCLI_Cookies(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "lang", "de", "--backend", "cookie", "--expires-days", "7")
	env.mustRun("set-cookie", "sid=abc; Path=/; Max-Age=3600; HttpOnly; Secure")

	assert.Equal(t, "de\n", env.mustRun("get", "lang", "--backend", "cookie").stdout)
	assert.Equal(t, exitUserError, env.run("get", "sid", "--backend", "cookie").code, "HttpOnly cookies are hidden")

	var cookies []cookieOutput
	decodeJSON(t, env.mustRun("--json", "list", "--backend", "cookie").stdout, &cookies)
	require.Len(t, cookies, 2)
	byName := map[string]cookieOutput{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	assert.True(t, byName["sid"].HTTPOnly)
	require.NotNil(t, byName["lang"].Expires)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *byName["lang"].Expires, time.Minute)

	env.mustRun("rm", "lang", "--backend", "cookie")
	assert.Equal(t, exitUserError, env.run("get", "lang", "--backend", "cookie").code)

	r := env.run("set", "x", "1", "--backend", "cookie", "--same-site", "None")
	assert.Equal(t, exitUserError, r.code, "SameSite=None requires secure")

	r = env.run("set-cookie", "=bad")
	assert.Equal(t, exitUserError, r.code)
}

func TestCLI_ExportImport(t *testing.T) {
	src := newTestEnv(t)
	src.mustRun("set", "a", "1")
	src.mustRun("set", "b", `{"x":true}`)

	path := filepath.Join(t.TempDir(), "dump.jsonl")
	assert.Contains(t, src.mustRun("export", path).stdout, "exported 2 items")

	dst := newTestEnv(t)
	assert.Contains(t, dst.mustRun("import", path).stdout, "imported 2 items")
	assert.Equal(t, `{"x":true}`+"\n", dst.mustRun("get", "b").stdout)

	assert.Equal(t, exitSysError, dst.run("import", filepath.Join(t.TempDir(), "missing.jsonl")).code)
}

func TestCLI_Watch(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "k", "before")

	done := make(chan result, 1)
	go func() {
		var stdout, stderr syncBuffer
		root := NewRootCmd()
		root.SetOut(&stdout)
		root.SetErr(&stderr)
		code := run(root, []string{
			"--config-dir", env.configDir, "--data-dir", env.dataDir,
			"watch", "k", "--count", "1", "--interval", "5ms",
		}, &stderr)
		done <- result{stdout: stdout.String(), stderr: stderr.String(), code: code}
	}()

	// Keep writing until the watcher, which may still be starting, sees a change.
	var r result
	require.Eventually(t, func() bool {
		env.mustRun("set", "k", "after-"+time.Now().Format(time.RFC3339Nano))
		select {
		case r = <-done:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 5*time.Second, time.Millisecond)

	require.Equal(t, exitSuccess, r.code, r.stderr)
	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "after-"))
}

func TestCLI_Bench(t *testing.T) {
	env := newTestEnv(t)
	var res benchResult
	decodeJSON(t, env.mustRun("--json", "bench", "--bindings", "50", "--ticks", "5", "--changed", "3").stdout, &res)
	assert.Equal(t, 50, res.Bindings)
	assert.Equal(t, 1, res.TimerStarts)
	assert.Equal(t, int64(15), res.Notifications)

	assert.Equal(t, exitUserError, env.run("bench", "--bindings", "0").code)
}

func TestCLI_UserErrors(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, exitUserError, env.run("get", "k", "--backend", "indexeddb").code)
	assert.Equal(t, exitUserError, env.run("get").code)
	assert.Equal(t, exitUserError, env.run("frobnicate").code)
}

func TestSession_CloseFailureReachesCommandError(t *testing.T) {
	newSession := func(t *testing.T) *session {
		t.Helper()
		sh := shelf.New()
		require.NoError(t, sh.Attach(types.Config{Store: types.StoreMemory}))
		win, err := sh.OpenWindow()
		require.NoError(t, err)
		return &session{shelf: sh, win: win}
	}

	t.Run("close error replaces nil", func(t *testing.T) {
		sess := newSession(t)
		require.NoError(t, sess.shelf.Detach())

		var err error
		sess.closeInto(&err)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrShelfDetached)
		assert.Equal(t, exitSysError, exitCode(err))
	})

	t.Run("command error wins", func(t *testing.T) {
		sess := newSession(t)
		require.NoError(t, sess.shelf.Detach())

		err := userError("key missing")
		sess.closeInto(&err)
		assert.Equal(t, exitUserError, exitCode(err))
		assert.Contains(t, err.Error(), "key missing")
	})

	t.Run("clean close keeps nil", func(t *testing.T) {
		sess := newSession(t)
		var err error
		sess.closeInto(&err)
		assert.NoError(t, err)
	})
}
