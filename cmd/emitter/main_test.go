package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer

	opts, err := parseFlags([]string{
		"-c", "emitter.toml",
		"-log-level", "debug",
		"-w", "a, b",
		"-script", "hooks.lua",
		"-emit", "user.created",
		"ada", "42",
	}, &stdout, &stderr)
	require.NoError(t, err)

	require.Equal(t, "emitter.toml", opts.ConfigPath)
	require.Equal(t, "debug", opts.LogLevel)
	require.Equal(t, []string{"a", "b"}, opts.Watch)
	require.Equal(t, []string{"hooks.lua"}, opts.Scripts)
	require.Equal(t, "user.created", opts.Emit)
	require.Equal(t, []string{"ada", "42"}, opts.Args)
}

func TestParseFlags_Invalid(t *testing.T) {
	var stdout, stderr bytes.Buffer

	_, err := parseFlags([]string{"-log-level", "loud"}, &stdout, &stderr)
	require.Error(t, err)

	_, err = parseFlags([]string{"-emit", "user.*"}, &stdout, &stderr)
	require.Error(t, err)

	_, err = parseFlags([]string{"-bogus"}, &stdout, &stderr)
	require.Error(t, err)
}

func TestParseFlags_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer

	_, err := parseFlags([]string{"-version"}, &stdout, &stderr)
	require.ErrorIs(t, err, errHelp)
	require.Contains(t, stdout.String(), "emitter dev")
}

func TestServe_ScriptAndEmit(t *testing.T) {
	dir := t.TempDir()
	hooks := filepath.Join(dir, "hooks.lua")
	require.NoError(t, os.WriteFile(hooks, []byte(`
		emitter.on("user.created", function(name)
			emitter.emit("user.greeted", "hello " .. name)
		end)
	`), 0o644))

	var logs bytes.Buffer
	err := serve(context.Background(), Options{
		ConfigPath: filepath.Join(dir, "absent.toml"),
		Scripts:    []string{hooks},
		Emit:       "user.created",
		Args:       []string{"ada"},
	}, &logs)
	require.NoError(t, err)

	out := logs.String()
	require.Contains(t, out, `"msg":"script loaded"`)
	require.Contains(t, out, `"topic":"user.created"`)
	require.Contains(t, out, `"topic":"user.greeted"`)
	require.Contains(t, out, "hello ada")
}

func TestServe_ScriptError(t *testing.T) {
	dir := t.TempDir()
	hooks := filepath.Join(dir, "hooks.lua")
	require.NoError(t, os.WriteFile(hooks, []byte(`
		emitter.on("user.created", function() error("nope") end)
	`), 0o644))

	var logs bytes.Buffer
	err := serve(context.Background(), Options{
		ConfigPath: filepath.Join(dir, "absent.toml"),
		Scripts:    []string{hooks},
		Emit:       "user.created",
	}, &logs)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
}

func TestServe_Watch(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	var logs syncBuffer
	go func() {
		done <- serve(ctx, Options{
			ConfigPath: filepath.Join(dir, "absent.toml"),
			Watch:      []string{dir},
		}, &logs)
	}()

	require.Eventually(t, func() bool {
		return bytes.Contains(logs.Bytes(), []byte(`"msg":"watching"`))
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return bytes.Contains(logs.Bytes(), []byte(`"topic":"fs.create"`))
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	require.Contains(t, logs.String(), `"msg":"watcher stopped"`)
}

func TestServe_WatchIgnore(t *testing.T) {
	confDir := t.TempDir()
	watchDir := t.TempDir()

	conf := filepath.Join(confDir, "emitter.toml")
	require.NoError(t, os.WriteFile(conf, []byte(`
[watch]
ignore = ["*.log"]
ignore_hidden = true
`), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	var logs syncBuffer
	go func() {
		done <- serve(ctx, Options{
			ConfigPath: conf,
			Watch:      []string{watchDir},
		}, &logs)
	}()

	require.Eventually(t, func() bool {
		return bytes.Contains(logs.Bytes(), []byte(`"msg":"watching"`))
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "skip.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(watchDir, "keep.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return bytes.Contains(logs.Bytes(), []byte("keep.txt"))
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	out := logs.String()
	require.NotContains(t, out, "skip.log")
	require.NotContains(t, out, ".hidden")
}
