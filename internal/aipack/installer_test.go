package aipack

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/sidecar"
)

type zipEntry struct {
	name string
	data []byte
}

func writeZip(t *testing.T, path string, entries []zipEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// sparseFile creates a file of the given apparent size without writing its content.
func sparseFile(t *testing.T, path string, size int64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

func newTestInstaller(t *testing.T, rec *events.Recorder, minSize int64) (*Installer, string) {
	t.Helper()
	binDir := filepath.Join(t.TempDir(), "binaries")
	return NewInstaller(events.NewPublisher(rec), testLogger(), binDir, sidecar.PlatformExecutableNames(), minSize), binDir
}

func TestNormalizeEntryName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"binaries/infer_worker.exe", "infer_worker.exe"},
		{"binaries\\_internal\\python311.dll", "_internal/python311.dll"},
		{"binaries/", ""},
		{"binaries/_internal/", ""},
		{"", ""},
		{"lib/a.so", "lib/a.so"},
		{"other/binaries/x", "other/binaries/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEntryName(tt.in), tt.in)
	}
}

func TestInstall_ExtractsAndValidates(t *testing.T) {
	t.Parallel()

	rec := &events.Recorder{}
	in, binDir := newTestInstaller(t, rec, 100)
	exe := sidecar.PlatformExecutableNames()[0]

	archive := filepath.Join(t.TempDir(), "pack.zip")
	writeZip(t, archive, []zipEntry{
		{"binaries/", nil},
		{"binaries/" + exe, make([]byte, 256)},
		{"binaries\\_internal\\runtime.dll", []byte("dll")},
	})

	require.NoError(t, in.Install(t.Context(), archive))

	assert.FileExists(t, filepath.Join(binDir, exe))
	assert.FileExists(t, filepath.Join(binDir, "_internal", "runtime.dll"))
	assert.NoFileExists(t, archive, "archive is removed after a valid install")

	names := rec.Names()
	require.NotEmpty(t, names)
	assert.Equal(t, events.AIPackExtracting, names[0])
	assert.Equal(t, events.AIPackDone, names[len(names)-1])
	assert.Equal(t, events.PackExtractingPayload{Total: 3}, rec.Named(events.AIPackExtracting)[0])
	assert.Equal(t, []any{events.PackExtractProgressPayload{Current: 3, Total: 3, Percent: 100}},
		rec.Named(events.AIPackExtractProgress))

	if runtime.GOOS != "windows" {
		st, err := os.Stat(filepath.Join(binDir, exe))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), st.Mode().Perm())
	}
}

func TestExtract_ProgressEveryFiftyEntries(t *testing.T) {
	t.Parallel()

	rec := &events.Recorder{}
	in, _ := newTestInstaller(t, rec, 0)

	entries := make([]zipEntry, 120)
	for i := range entries {
		entries[i] = zipEntry{fmt.Sprintf("binaries/f%03d.bin", i), []byte{byte(i)}}
	}
	archive := filepath.Join(t.TempDir(), "pack.zip")
	writeZip(t, archive, entries)

	require.NoError(t, in.Extract(t.Context(), archive))

	var currents []int
	for _, p := range rec.Named(events.AIPackExtractProgress) {
		currents = append(currents, p.(events.PackExtractProgressPayload).Current)
	}
	assert.Equal(t, []int{50, 100, 120}, currents)
}

func TestExtract_RejectsPathTraversal(t *testing.T) {
	t.Parallel()

	in, binDir := newTestInstaller(t, &events.Recorder{}, 0)
	archive := filepath.Join(t.TempDir(), "pack.zip")
	writeZip(t, archive, []zipEntry{{"binaries/../../escape.txt", []byte("x")}})

	err := in.Extract(t.Context(), archive)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryExtract))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(filepath.Dir(binDir)), "escape.txt"))
}

func TestExtract_CorruptArchive(t *testing.T) {
	t.Parallel()

	in, _ := newTestInstaller(t, &events.Recorder{}, 0)
	archive := filepath.Join(t.TempDir(), "pack.zip")
	require.NoError(t, os.WriteFile(archive, []byte("definitely not a zip"), 0o644))

	err := in.Extract(t.Context(), archive)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryExtract))
}

func TestValidate_SmallPackWithExecutable(t *testing.T) {
	t.Parallel()

	rec := &events.Recorder{}
	in, binDir := newTestInstaller(t, rec, 5_000_000)
	sparseFile(t, filepath.Join(binDir, "infer_worker-x86_64-pc-windows-msvc.exe"), 2_000_000)
	in.exeNames = sidecar.ExecutableNames("windows")

	v, err := in.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryPackInvalid))
	assert.Equal(t, "below 5 MB", v.Reason())
	assert.Contains(t, err.Error(), "below 5 MB")
	assert.Contains(t, err.Error(), "2000000 bytes")

	logs := rec.Named(events.AIPackLog)
	require.Len(t, logs, 2)
	first := logs[0].(map[string]any)
	assert.Equal(t, int64(2_000_000), first["size_bytes"])
	assert.Equal(t, true, first["exe_found"])
	assert.Equal(t, float64(5), first["threshold_mb"])
}

func TestValidate_LargePackWithoutExecutable(t *testing.T) {
	t.Parallel()

	in, binDir := newTestInstaller(t, &events.Recorder{}, 5_000_000)
	for i := range 4 {
		sparseFile(t, filepath.Join(binDir, "_internal", fmt.Sprintf("lib%d.dll", i)), 5_000_000)
	}

	v, err := in.Validate()
	require.Error(t, err)
	assert.Equal(t, int64(20_000_000), v.SizeBytes)
	assert.False(t, v.ExeFound)
	assert.Equal(t, ReasonExecutableNotFound, v.Reason())
	assert.Contains(t, err.Error(), "executable not found")
}

func TestValidate_ExactlyMinimumIsRejected(t *testing.T) {
	t.Parallel()

	in, binDir := newTestInstaller(t, &events.Recorder{}, 5_000_000)
	sparseFile(t, filepath.Join(binDir, sidecar.PlatformExecutableNames()[0]), 5_000_000)

	v, err := in.Validate()
	require.Error(t, err)
	assert.Equal(t, "below 5 MB", v.Reason())

	sparseFile(t, filepath.Join(binDir, "extra.bin"), 1)
	v, err = in.Validate()
	require.NoError(t, err)
	assert.True(t, v.Valid())
}

func TestInstall_InvalidPackKeepsArchive(t *testing.T) {
	t.Parallel()

	in, _ := newTestInstaller(t, &events.Recorder{}, 5_000_000)
	archive := filepath.Join(t.TempDir(), "pack.zip")
	writeZip(t, archive, []zipEntry{{"binaries/readme.txt", []byte("placeholder")}})

	err := in.Install(t.Context(), archive)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryPackInvalid))
	assert.FileExists(t, archive)
}

func TestDirSize_MissingRoot(t *testing.T) {
	t.Parallel()

	size, err := DirSize(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestValidate_ReasonFollowsConfiguredMinimum(t *testing.T) {
	t.Parallel()

	in, binDir := newTestInstaller(t, &events.Recorder{}, 12_500_000)
	sparseFile(t, filepath.Join(binDir, sidecar.PlatformExecutableNames()[0]), 8_000_000)

	v, err := in.Validate()
	require.Error(t, err)
	assert.Equal(t, "below 12.5 MB", v.Reason())
	assert.Contains(t, err.Error(), "Minimum: 12.5 MB")
	assert.Contains(t, err.Error(), "Reason: below 12.5 MB")
}
