package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"inkblog/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "blog.db")+"?_foreign_keys=on&_busy_timeout=5000")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestBlogctl_Workflow(t *testing.T) {
	setupEnv(t)

	assert.Contains(t, mustRun(t, "migrate"), "Database migrated.")
	assert.Contains(t, mustRun(t, "user", "create", "alice", "--email", "alice@example.com", "--password", "secret1"), "Created user 1 (alice)")
	assert.Contains(t, mustRun(t, "user", "set-role", "alice", "admin"), "alice is now admin")

	// seeded categories take ids 1-3
	assert.Contains(t, mustRun(t, "category", "create", "Go", "go", "--parent", "1", "--position", "1"), "Created category 4 (go)")

	body := filepath.Join(t.TempDir(), "hello.md")
	require.NoError(t, os.WriteFile(body, []byte("# Hello\n\nFirst post."), 0o644))
	out := mustRun(t, "article", "create", "--title", "Hello", "--slug", "hello", "--author", "alice", "--body", body, "--category", "1,4")
	assert.Contains(t, out, "Created article 1 (hello), status draft.")

	assert.Contains(t, mustRun(t, "publish", "1"), "1 article was published.")
	assert.Contains(t, mustRun(t, "draft", "1", "99"), "1 article was marked as draft.")
}

func TestBlogctl_Errors(t *testing.T) {
	setupEnv(t)
	mustRun(t, "migrate")
	mustRun(t, "category", "create", "Child", "child", "--parent", "1")

	_, err := run(t, "category", "set-parent", "1", "4")
	assert.ErrorIs(t, err, services.ErrCategoryCycle)

	mustRun(t, "category", "set-parent", "4", "none")

	_, err = run(t, "user", "set-role", "ghost", "admin")
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = run(t, "publish", "abc")
	assert.ErrorContains(t, err, `invalid id "abc"`)

	_, err = run(t, "user", "create", "bob", "--password", "123")
	assert.ErrorIs(t, err, services.ErrBadRequest)
}
