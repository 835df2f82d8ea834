// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package deck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// ErrUnsupportedImage is returned by PasteImage for files that are not
// PNG or JPEG images.
var ErrUnsupportedImage = errors.New("unsupported image format")

// ErrNoClipboard is returned when no clipboard tool is installed.
var ErrNoClipboard = errors.New("no clipboard tool available")

// clipboardSettle is the pause between filling the clipboard and
// pressing the paste key.
const clipboardSettle = 100 * time.Millisecond

// ImageFormat is the MIME subtype of a pasteable image.
type ImageFormat string

const (
	PNG  ImageFormat = "png"
	JPEG ImageFormat = "jpeg"
)

// Clipboard places an image file on the system clipboard.
type Clipboard interface {
	CopyImage(ctx context.Context, path string, format ImageFormat) error
}

// DetectImageFormat reads the leading bytes of path.
func DetectImageFormat(path string) (ImageFormat, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	header := make([]byte, 8)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, []byte("\x89PNG\r\n\x1a\n")):
		return PNG, nil
	case bytes.HasPrefix(header, []byte{0xff, 0xd8, 0xff}):
		return JPEG, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, path)
}

// SystemClipboard shells out to osascript on macOS and to xclip or
// wl-copy elsewhere, whichever is found first.
type SystemClipboard struct{}

func (SystemClipboard) CopyImage(ctx context.Context, path string, format ImageFormat) error {
	if runtime.GOOS == "darwin" {
		class := "«class PNGf»"
		if format == JPEG {
			class = "JPEG picture"
		}
		script := fmt.Sprintf("set the clipboard to (read (POSIX file %q) as %s)", path, class)
		return runClipboard(exec.CommandContext(ctx, "osascript", "-e", script))
	}

	mime := "image/" + string(format)
	if _, err := exec.LookPath("xclip"); err == nil {
		return runClipboard(exec.CommandContext(ctx, "xclip", "-selection", "clipboard", "-t", mime, "-i", path))
	}
	if _, err := exec.LookPath("wl-copy"); err == nil {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		cmd := exec.CommandContext(ctx, "wl-copy", "--type", mime)
		cmd.Stdin = file
		return runClipboard(cmd)
	}
	return ErrNoClipboard
}

func runClipboard(cmd *exec.Cmd) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", cmd.Args[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}
