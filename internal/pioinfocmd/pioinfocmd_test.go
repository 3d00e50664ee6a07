package pioinfocmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestDetectFormatMatchesEveryKnownMagic(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		magic   []byte
		format  string
		wantLen int
	}{
		{"v1.nc", []byte("CDF\x01trailer"), "classic-v1", 2},
		{"v2.nc", []byte("CDF\x02trailer"), "64-bit-offset-v2", 2},
		{"v5.nc", []byte("CDF\x05trailer"), "64-bit-data-v5", 2},
		{"v4.nc", []byte("\x89HDFtrailer"), "v4/HDF5", 2},
	}
	for _, c := range cases {
		path := writeFile(t, dir, c.name, c.magic)
		format, kinds, err := detectFormat(path)
		require.NoError(t, err)
		require.Equal(t, c.format, format)
		require.Len(t, kinds, c.wantLen)
	}
}

func TestDetectFormatUnknownForUnrecognizedOrShortHeader(t *testing.T) {
	dir := t.TempDir()

	path := writeFile(t, dir, "junk.bin", []byte("nope"))
	format, kinds, err := detectFormat(path)
	require.NoError(t, err)
	require.Equal(t, unknownFormat, format)
	require.Nil(t, kinds)

	short := writeFile(t, dir, "short.bin", []byte("CD"))
	format, kinds, err = detectFormat(short)
	require.NoError(t, err)
	require.Equal(t, unknownFormat, format)
	require.Nil(t, kinds)
}

func TestDetectFormatMissingFileErrors(t *testing.T) {
	_, _, err := detectFormat(filepath.Join(t.TempDir(), "missing.nc"))
	require.Error(t, err)
}

func TestInspectOpensEveryCandidateBackend(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sample.nc", []byte("CDF\x01"))

	r := Inspect(path)
	require.NoError(t, r.ReadErr)
	require.Equal(t, "classic-v1", r.Format)
	require.Len(t, r.Kinds, 2)
	for _, kr := range r.Kinds {
		require.True(t, kr.OK, "kind %s should open cleanly against the in-memory backend store", kr.Kind)
	}
}

func TestInspectReportsUnknownFormatWithNoCandidates(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mystery.bin", []byte("????"))

	r := Inspect(path)
	require.NoError(t, r.ReadErr)
	require.Equal(t, unknownFormat, r.Format)
	require.Empty(t, r.Kinds)
}

func TestListTargetsSingleFileVsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.nc", []byte("CDF\x01"))
	writeFile(t, dir, "a.nc", []byte("CDF\x02"))

	single, err := ListTargets(filepath.Join(dir, "b.nc"), "")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "b.nc")}, single)

	all, err := ListTargets("", dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.nc"), filepath.Join(dir, "b.nc")}, all)
}

func TestRunInfoFailsWhenNeitherOrBothFlagsGiven(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs(nil)
	err := cmd.Execute()
	require.Error(t, err)

	cmd2 := NewRootCmd()
	dir := t.TempDir()
	path := writeFile(t, dir, "x.nc", []byte("CDF\x01"))
	cmd2.SetArgs([]string{"--ifile", path, "--idir", dir})
	err = cmd2.Execute()
	require.Error(t, err)
}

func TestRunInfoReportsSuccessForRecognizedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.nc", []byte("CDF\x01"))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--ifile", path})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "format=classic-v1")
	require.Contains(t, out.String(), "opens-with=2/2")
}

func TestRunInfoFailsForUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.bin", []byte("????"))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--ifile", path})
	require.Error(t, cmd.Execute())
}
