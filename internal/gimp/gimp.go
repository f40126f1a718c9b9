// Package gimp drives a headless GIMP subprocess to rasterize XCF project
// files to PNG.
package gimp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "go-rembg-clean/internal/errors"
)

// EnvExecutable is the environment variable consulted (via configuration)
// for the GIMP executable path.
const EnvExecutable = "GIMP_EXECUTABLE"

// knownExecutables are tried on PATH when no explicit path is configured,
// most specific first.
var knownExecutables = []string{
	"gimp-console-3.0.exe",
	"gimp-console-2.10.exe",
	"gimp-console.exe",
	"gimp-console",
	"gimp-3.exe",
	"gimp-3",
	"gimp.exe",
	"gimp",
}

// ResolveExecutable picks the GIMP executable to use: the explicit override
// first, then the environment-provided path, then well-known binary names on
// PATH. An override that does not exist is a hard error; the caller asked
// for that specific binary.
func ResolveExecutable(override, envPath string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", apperrors.NewExecutableNotFoundError(
				fmt.Sprintf("configured GIMP executable %q not found", override), err)
		}
		return override, nil
	}

	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	for _, name := range knownExecutables {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", apperrors.NewExecutableNotFoundError("no GIMP executable found", nil)
}

// IsStoreInstall reports whether the executable is a Windows Store GIMP,
// which is not reliable for headless batch processing.
func IsStoreInstall(executable string) bool {
	p := strings.ToLower(executable)
	return strings.Contains(p, "windowsapps") || strings.HasSuffix(p, "gimp-3.exe")
}

// Converter rasterizes XCF files through a headless GIMP subprocess
type Converter struct {
	Executable string
	Timeout    time.Duration
}

// NewConverter creates a converter around the given executable
func NewConverter(executable string) *Converter {
	return &Converter{
		Executable: executable,
		Timeout:    3 * time.Minute,
	}
}

// ConvertToPNG loads the XCF, merges its visible layers and saves the result
// as PNG at outPath. GIMP 3 script-fu: gimp-file-save is used because save2
// is not available there.
func (c *Converter) ConvertToPNG(ctx context.Context, xcfPath, outPath string) error {
	script := fmt.Sprintf(
		`(let* ((image (car (gimp-file-load RUN-NONINTERACTIVE "%s" "%s"))) `+
			`(drawable (car (gimp-image-merge-visible-layers image CLIP-TO-IMAGE)))) `+
			`(gimp-file-save RUN-NONINTERACTIVE image "%s") `+
			`(gimp-image-delete image))`,
		filepath.ToSlash(xcfPath), filepath.ToSlash(xcfPath), filepath.ToSlash(outPath))

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Executable,
		"-i",
		"--batch-interpreter=plug-in-script-fu-eval",
		"-b", script,
		"--quit",
	)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return apperrors.NewConversionError(
				fmt.Sprintf("GIMP export timeout (%s)", c.Timeout), ctx.Err())
		}
		msg := strings.TrimSpace(output.String())
		if msg == "" {
			msg = err.Error()
		}
		return apperrors.NewConversionError(fmt.Sprintf("GIMP export failed: %s", msg), err)
	}

	return nil
}
