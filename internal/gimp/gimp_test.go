package gimp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-rembg-clean/internal/errors"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestResolveExecutableOverride(t *testing.T) {
	dir := t.TempDir()
	exe := writeScript(t, dir, "my-gimp", "exit 0")

	got, err := ResolveExecutable(exe, "")
	require.NoError(t, err)
	assert.Equal(t, exe, got)
}

func TestResolveExecutableOverrideMissing(t *testing.T) {
	_, err := ResolveExecutable(filepath.Join(t.TempDir(), "nope"), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExecutableNotFound))
}

func TestResolveExecutableEnvPath(t *testing.T) {
	dir := t.TempDir()
	exe := writeScript(t, dir, "env-gimp", "exit 0")

	got, err := ResolveExecutable("", exe)
	require.NoError(t, err)
	assert.Equal(t, exe, got)
}

func TestResolveExecutableFromPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures")
	}
	dir := t.TempDir()
	writeScript(t, dir, "gimp-console", "exit 0")
	t.Setenv("PATH", dir)

	got, err := ResolveExecutable("", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gimp-console"), got)
}

func TestResolveExecutableNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := ResolveExecutable("", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExecutableNotFound))
}

func TestIsStoreInstall(t *testing.T) {
	assert.True(t, IsStoreInstall(`C:\Program Files\WindowsApps\gimp\bin\gimp-console.exe`))
	assert.True(t, IsStoreInstall(`C:\tools\gimp-3.exe`))
	assert.False(t, IsStoreInstall(`C:\Program Files\GIMP 2\bin\gimp-console-2.10.exe`))
	assert.False(t, IsStoreInstall("/usr/bin/gimp-console"))
}

func TestConvertToPNGInvokesHeadlessBatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	exe := writeScript(t, dir, "fake-gimp", `printf '%s\n' "$@" > `+argsFile)

	conv := NewConverter(exe)
	err := conv.ConvertToPNG(context.Background(), filepath.Join(dir, "in.xcf"), filepath.Join(dir, "out.png"))
	require.NoError(t, err)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-i")
	assert.Contains(t, string(args), "--batch-interpreter=plug-in-script-fu-eval")
	assert.Contains(t, string(args), "gimp-file-load")
	assert.Contains(t, string(args), "out.png")
}

func TestConvertToPNGReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures")
	}
	dir := t.TempDir()
	exe := writeScript(t, dir, "fake-gimp", `echo "batch command experienced an execution error" >&2; exit 1`)

	conv := NewConverter(exe)
	err := conv.ConvertToPNG(context.Background(), "in.xcf", "out.png")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConversion))
	assert.Contains(t, err.Error(), "execution error")
}
