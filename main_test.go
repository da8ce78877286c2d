package main

import (
	"bytes"
	"image"
	"image/color"
	stdpng "image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanichkin/pngview/internal/export"
)

func writeTestPNG(t *testing.T, dir string) string {
	t.Helper()
	m := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range m.Pix {
		m.Pix[i] = uint8(i * 9)
	}
	m.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 255})
	var buf bytes.Buffer
	require.NoError(t, stdpng.Encode(&buf, m))
	path := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func runCLI(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestDecodeToEachFormat(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)

	for _, format := range []string{"ppm", "pam", "qoi", "pxz"} {
		out := filepath.Join(dir, "out."+format)
		stdout, _, err := runCLI("decode", in, "-o", out)
		require.NoError(t, err, format)
		assert.Contains(t, stdout, "→ "+out)
		assert.Contains(t, stdout, "4x2 truecolor+alpha depth=8")

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		switch format {
		case "ppm":
			assert.True(t, strings.HasPrefix(string(data), "P6\n4 2\n255\n"))
		case "pam":
			assert.True(t, strings.HasPrefix(string(data), "P7\n"))
		case "qoi":
			assert.True(t, strings.HasPrefix(string(data), "qoif"))
		case "pxz":
			img, err := export.ReadDump(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, []byte{1, 2, 3, 255}, img.Pix[:4])
		}
	}
}

func TestDecodeDefaultOutputAndStdout(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)

	_, _, err := runCLI("decode", in)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "in.ppm"))
	assert.NoError(t, err)

	stdout, _, err := runCLI("decode", in, "-o", "-", "-f", "pam")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "P7\nWIDTH 4\nHEIGHT 2\n"))

	_, _, err = runCLI("decode", in, "-f", "gif")
	assert.ErrorIs(t, err, errUnknownFormat)
}

func TestDecodeOutputExtension(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)
	orig, err := os.ReadFile(in)
	require.NoError(t, err)

	_, _, err = runCLI("decode", in, "-o", in)
	assert.ErrorIs(t, err, errUnknownFormat)
	after, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, orig, after)

	_, _, err = runCLI("decode", in, "-o", filepath.Join(dir, "out.jpg"))
	assert.ErrorIs(t, err, errUnknownFormat)
	_, err = os.Stat(filepath.Join(dir, "out.jpg"))
	assert.True(t, os.IsNotExist(err))

	noExt := filepath.Join(dir, "out")
	_, _, err = runCLI("decode", in, "-o", noExt)
	require.NoError(t, err)
	data, err := os.ReadFile(noExt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "P6\n"))
}

func TestDecodeFailures(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := runCLI("decode", filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, ErrBadFilePath)
	assert.Contains(t, stderr, "bad file path")

	_, _, err = runCLI("decode", dir)
	assert.ErrorIs(t, err, ErrBadFilePath)

	notPNG := filepath.Join(dir, "x.png")
	require.NoError(t, os.WriteFile(notPNG, []byte("GIF89a"), 0o644))
	_, stderr, err = runCLI("decode", notPNG)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad signature")
	assert.Contains(t, stderr, "ERROR: pngview failed")
	assert.Contains(t, stderr, "Stack trace:")
}

func TestChunksCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)

	stdout, _, err := runCLI("chunks", in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "IHDR")
	assert.Contains(t, stdout, "IDAT")
	assert.Contains(t, stdout, "IEND")
	assert.Contains(t, stdout, "3 chunks")

	data, err := os.ReadFile(in)
	require.NoError(t, err)
	cut := filepath.Join(dir, "cut.png")
	require.NoError(t, os.WriteFile(cut, data[:33], 0o644))
	stdout, _, err = runCLI("chunks", cut)
	require.Error(t, err)
	assert.Contains(t, stdout, "1 chunks")
}

func TestShowCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)

	stdout, _, err := runCLI("show", in, "--cols", "4")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	assert.Equal(t, 4, strings.Count(stdout, "▀"))

	pxz := filepath.Join(dir, "in.pxz")
	_, _, err = runCLI("decode", in, "-o", pxz)
	require.NoError(t, err)
	fromDump, _, err := runCLI("show", pxz, "--cols", "4")
	require.NoError(t, err)
	assert.Equal(t, stdout, fromDump)

	qoiPath := filepath.Join(dir, "in.qoi")
	_, _, err = runCLI("decode", in, "-o", qoiPath)
	require.NoError(t, err)
	fromQOI, _, err := runCLI("show", qoiPath, "--cols", "4")
	require.NoError(t, err)
	assert.Equal(t, stdout, fromQOI)

	_, _, err = runCLI("show", in, "--bg", "zz")
	assert.ErrorIs(t, err, errBadColor)
}

func TestGlobalFlags(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)

	_, _, err := runCLI("--max-pixels", "7", "decode", in)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "limit exceeded")

	_, stderr, err := runCLI("--log-level", "debug", "decode", in, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, stderr, "decoded")

	_, _, err = runCLI("--log-level", "loud", "decode", in)
	assert.Error(t, err)
}
