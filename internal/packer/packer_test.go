package packer

import (
	"archive/zip"
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanaland/cardpack/internal/archive"
	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/fsys"
	"github.com/arcanaland/cardpack/internal/project"
	"github.com/arcanaland/cardpack/internal/validator"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func demoProject() map[string]string {
	return map[string]string{
		".card/metadata.yaml":     "card_id: abc1234567\nname: Demo\n",
		".card/structure.yaml":    "structure:\n  - id: bc0000001A\n    type: Rich\n",
		".card/cover.html":        "<h1>Demo</h1>\n",
		"content/bc0000001A.yaml": "type: Rich\ndata:\n  text: hi\n",
		"assets/logo.svg":         "<svg/>\n",
	}
}

func writeProject(t *testing.T, fs fsys.FS, root string, files map[string]string) {
	t.Helper()
	require.NoError(t, fs.Mkdir(root, true))
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, fs.Mkdir(filepath.Dir(full), true))
		require.NoError(t, fs.WriteTextFile(full, content))
	}
}

func newTestPacker(fs fsys.FS, opts ...Option) *Packer {
	return New(fs, archive.NewZip(), append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestEndToEnd(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	p := newTestPacker(fs)

	res, err := p.Pack("/src", "/out/demo.card", DefaultPackOptions())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "/out/demo.card", res.OutputPath)
	assert.Equal(t, 5, res.FileCount)
	assert.Positive(t, res.FileSize)
	assert.Empty(t, res.Checksum)

	report := p.Validate("/src", validator.Options{})
	assert.True(t, report.Valid)

	unpacked, err := p.Unpack("/out/demo.card", "/dst", DefaultUnpackOptions())
	require.NoError(t, err)
	assert.True(t, unpacked.Success)
	assert.Equal(t, 5, unpacked.FileCount)
	assert.Empty(t, unpacked.Warnings)
	require.NotNil(t, unpacked.Validation)
	assert.True(t, unpacked.Validation.Valid)

	data, err := fs.ReadFile("/dst/content/bc0000001A.yaml")
	require.NoError(t, err)
	content, err := card.ParseContent(data)
	require.NoError(t, err)
	obj, ok := content.DataObject()
	require.True(t, ok)
	assert.Equal(t, "hi", obj["text"])
}

func TestRoundTripOnDisk(t *testing.T) {
	fs := fsys.NewOS()
	root := t.TempDir()
	src := filepath.Join(root, "src")
	files := demoProject()
	files["assets/img/raw.bin"] = string([]byte{0, 1, 2, 3, 255})
	writeProject(t, fs, src, files)

	p := newTestPacker(fs)
	target := filepath.Join(root, "dist", "demo.card")
	_, err := p.Pack(src, target, DefaultPackOptions())
	require.NoError(t, err)

	dst := filepath.Join(root, "dst")
	_, err = p.Unpack(target, dst, DefaultUnpackOptions())
	require.NoError(t, err)

	for rel, want := range files {
		got, err := fs.ReadFile(filepath.Join(dst, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		if rel == card.MetadataPath {
			continue
		}
		assert.Equal(t, []byte(want), got, rel)
	}

	original, err := fs.ReadFile(filepath.Join(src, ".card", "metadata.yaml"))
	require.NoError(t, err)
	assert.Equal(t, files[card.MetadataPath], string(original), "source must not change")

	data, err := fs.ReadFile(filepath.Join(dst, ".card", "metadata.yaml"))
	require.NoError(t, err)
	meta, err := card.ParseMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, "abc1234567", meta.CardID)
	assert.Equal(t, "Demo", meta.Name)
	assert.Equal(t, "2026-10-18T09:30:00Z", meta.ModifiedAt)
	require.NotNil(t, meta.FileInfo)
	assert.Equal(t, 6, meta.FileInfo.FileCount)
	assert.Equal(t, "2026-10-18T09:30:00Z", meta.FileInfo.GeneratedAt)
	assert.Empty(t, meta.FileInfo.Checksum)

	var total int64
	for _, content := range files {
		total += int64(len(content))
	}
	assert.Equal(t, total, meta.FileInfo.TotalSize)
}

func TestArchiveLayoutIsStoredAndOrdered(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	p := newTestPacker(fs)

	_, err := p.Pack("/src", "/demo.card", DefaultPackOptions())
	require.NoError(t, err)

	data, err := fs.ReadFile("/demo.card")
	require.NoError(t, err)
	entries, err := archive.NewZip().List(data)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Path)
		assert.True(t, e.Stored, e.Path)
		assert.Equal(t, e.Size, e.CompressedSize, e.Path)
	}
	assert.Equal(t, []string{
		".card/metadata.yaml",
		".card/cover.html",
		".card/structure.yaml",
		"assets/logo.svg",
		"content/bc0000001A.yaml",
	}, names)

	report := p.Validate("/demo.card", validator.Options{})
	assert.True(t, report.Valid)
}

func TestChecksumDeterminism(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	p := newTestPacker(fs)
	opts := DefaultPackOptions()
	opts.Checksum = true

	first, err := p.Pack("/src", "/a.card", opts)
	require.NoError(t, err)
	second, err := p.Pack("/src", "/b.card", opts)
	require.NoError(t, err)
	require.NotEmpty(t, first.Checksum)
	assert.Equal(t, first.Checksum, second.Checksum)

	meta, err := p.GetMetadata("/a.card")
	require.NoError(t, err)
	require.NotNil(t, meta.FileInfo)
	assert.Equal(t, first.Checksum, meta.FileInfo.Checksum)

	require.NoError(t, fs.WriteTextFile("/src/assets/logo.svg", "<svg/>!"))
	changed, err := p.Pack("/src", "/c.card", opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.Checksum, changed.Checksum)

	require.NoError(t, fs.WriteTextFile("/src/assets/logo.svg", "<svg/>\n"))
	restored, err := p.Pack("/src", "/d.card", opts)
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, restored.Checksum)

	require.NoError(t, fs.Rmdir("/src/assets", true))
	writeProject(t, fs, "/src", map[string]string{"images/logo.svg": "<svg/>\n"})
	renamed, err := p.Pack("/src", "/e.card", opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.Checksum, renamed.Checksum)
}

func TestChecksumIgnoresMetadata(t *testing.T) {
	build := func(meta, content string) string {
		return Checksum([]project.File{
			{Path: card.MetadataPath, Content: []byte(meta)},
			{Path: "content/x.yaml", Content: []byte(content)},
		})
	}
	assert.Equal(t, build("name: a", "x"), build("name: b", "x"))
	assert.NotEqual(t, build("name: a", "x"), build("name: a", "y"))

	a := project.File{Path: "a.txt", Content: []byte("a")}
	b := project.File{Path: "b.txt", Content: []byte("b")}
	assert.NotEqual(t, Checksum([]project.File{a, b}), Checksum([]project.File{b, a}))
}

func TestVerifyChecksum(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	p := newTestPacker(fs)
	opts := DefaultPackOptions()
	opts.Checksum = true

	_, err := p.Pack("/src", "/demo.card", opts)
	require.NoError(t, err)

	res, err := p.VerifyChecksum("/demo.card")
	require.NoError(t, err)
	assert.True(t, res.Match)

	data, err := fs.ReadFile("/demo.card")
	require.NoError(t, err)
	z := archive.NewZip()
	entries, err := z.List(data)
	require.NoError(t, err)
	contents, err := z.Extract(data, archive.ExtractOptions{})
	require.NoError(t, err)

	var tampered []archive.File
	for _, e := range entries {
		c := contents[e.Path]
		if e.Path == "content/bc0000001A.yaml" {
			c = []byte("type: Rich\ndata:\n  text: ho\n")
		}
		tampered = append(tampered, archive.File{Path: e.Path, Content: c})
	}
	out, err := z.Create(tampered, archive.CreateOptions{Store: true})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile("/tampered.card", out))

	res, err = p.VerifyChecksum("/tampered.card")
	require.NoError(t, err)
	assert.False(t, res.Match)

	_, err = p.Pack("/src", "/plain.card", DefaultPackOptions())
	require.NoError(t, err)
	_, err = p.VerifyChecksum("/plain.card")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPackErrors(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	require.NoError(t, fs.WriteTextFile("/file.txt", "x"))
	p := newTestPacker(fs)

	_, err := p.Pack("/missing", "/out.card", DefaultPackOptions())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = p.Pack("/file.txt", "/out.card", DefaultPackOptions())
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = p.Pack("/src", "/out.card", PackOptions{Validate: true, MaxResourceSize: 4})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = p.Pack("/src", "/out.card", PackOptions{Validate: true, Exclude: []string{"[bad"}})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	exists, err := fs.Exists("/out.card")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPackRejectsInvalidProject(t *testing.T) {
	fs := fsys.NewMemory()
	files := demoProject()
	files["content/bc0000001A.yaml"] = "type: Plain\ndata:\n  text: hi\n"
	writeProject(t, fs, "/src", files)
	p := newTestPacker(fs)

	_, err := p.Pack("/src", "/out.card", DefaultPackOptions())
	require.ErrorIs(t, err, ErrInvalidFormat)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	require.Len(t, perr.Details, 1)
	assert.Contains(t, perr.Details[0], "content.bc0000001A.type")

	failure := Describe(err)
	assert.Equal(t, "INVALID_FORMAT", failure.Code)
	assert.Equal(t, perr.Details, failure.Details)

	res, err := p.Pack("/src", "/out.card", PackOptions{Validate: false})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestPackHiddenAndSelfExclusion(t *testing.T) {
	fs := fsys.NewMemory()
	files := demoProject()
	files[".git/config"] = "x"
	files[".card/.swp"] = "x"
	writeProject(t, fs, "/src", files)
	p := newTestPacker(fs)

	res, err := p.Pack("/src", "/src/dist/demo.card", DefaultPackOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, res.FileCount)

	res, err = p.Pack("/src", "/src/dist/demo.card", DefaultPackOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, res.FileCount, "the current target is never packed into itself")

	writeProject(t, fs, "/fresh", files)
	opts := DefaultPackOptions()
	opts.IncludeHidden = true
	res, err = p.Pack("/fresh", "/hidden.card", opts)
	require.NoError(t, err)
	assert.Equal(t, 7, res.FileCount)
}

func TestPackCollectsEarlierArchiveInsideProject(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	p := newTestPacker(fs)

	_, err := p.Pack("/src", "/src/dist/old.card", DefaultPackOptions())
	require.NoError(t, err)

	res, err := p.Pack("/src", "/new.card", DefaultPackOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, res.FileCount)

	data, err := fs.ReadFile("/new.card")
	require.NoError(t, err)
	contents, err := archive.NewZip().Extract(data, archive.ExtractOptions{})
	require.NoError(t, err)
	assert.Contains(t, contents, "dist/old.card")

	opts := DefaultPackOptions()
	opts.Exclude = []string{"**/*.card"}
	res, err = p.Pack("/src", "/excluded.card", opts)
	require.NoError(t, err)
	assert.Equal(t, 5, res.FileCount)
}

func TestUnpackErrors(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	p := newTestPacker(fs)
	_, err := p.Pack("/src", "/demo.card", DefaultPackOptions())
	require.NoError(t, err)

	_, err = p.Unpack("/missing.card", "/dst", DefaultUnpackOptions())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Mkdir("/taken", true))
	_, err = p.Unpack("/demo.card", "/taken", DefaultUnpackOptions())
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, fs.WriteTextFile("/garbage.card", "not a zip"))
	_, err = p.Unpack("/garbage.card", "/dst", DefaultUnpackOptions())
	assert.ErrorIs(t, err, ErrInvalidFormat)
	exists, err := fs.Exists("/dst")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUnpackOverwrite(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	writeProject(t, fs, "/dst", map[string]string{"stale.txt": "old"})
	p := newTestPacker(fs)
	_, err := p.Pack("/src", "/demo.card", DefaultPackOptions())
	require.NoError(t, err)

	res, err := p.Unpack("/demo.card", "/dst", UnpackOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Nil(t, res.Validation)

	exists, err := fs.Exists("/dst/stale.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = fs.Exists("/dst/.card/metadata.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
}

func hostileArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		".card/metadata.yaml":  "card_id: abc1234567\nname: Demo\n",
		".card/structure.yaml": "structure: []\n",
		"../../evil.txt":       "evil",
		"/etc/evil.txt":        "evil",
		"content/../../x.txt":  "evil",
		"content/ok.txt":       "ok",
	} {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestUnpackSkipsTraversal(t *testing.T) {
	root := t.TempDir()
	fs := fsys.NewOS()
	p := newTestPacker(fs)
	target := filepath.Join(root, "a", "b", "dst")

	res, err := p.UnpackBytes(hostileArchive(t), target, DefaultUnpackOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, res.FileCount)
	require.Len(t, res.Warnings, 3)
	for _, w := range res.Warnings {
		assert.Equal(t, "PATH_SECURITY_VIOLATION", w.Code)
	}

	for _, outside := range []string{
		filepath.Join(root, "a", "evil.txt"),
		filepath.Join(root, "a", "b", "x.txt"),
		filepath.Join(target, "etc", "evil.txt"),
	} {
		exists, err := fs.Exists(outside)
		require.NoError(t, err)
		assert.False(t, exists, outside)
	}
	exists, err := fs.Exists(filepath.Join(target, "content", "ok.txt"))
	require.NoError(t, err)
	assert.True(t, exists)

	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.Valid)
}

func TestSafeJoin(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"content/a.yaml", "/root/dst/content/a.yaml", true},
		{"a/./b/../c.txt", "/root/dst/a/c.txt", true},
		{"../evil.txt", "", false},
		{"../../evil.txt", "", false},
		{"a/../../evil.txt", "", false},
		{"/etc/passwd", "", false},
		{`..\evil.txt`, "", false},
		{".", "", false},
		{"", "", false},
		{"a\x00b", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoin("/root/dst", tt.name)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrPathSecurityViolation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestGetMetadata(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())
	p := newTestPacker(fs)
	_, err := p.Pack("/src", "/demo.card", DefaultPackOptions())
	require.NoError(t, err)

	meta, err := p.GetMetadata("/demo.card")
	require.NoError(t, err)
	assert.Equal(t, "abc1234567", meta.CardID)
	assert.Equal(t, "Demo", meta.Name)

	_, err = p.GetMetadata("/missing.card")
	assert.ErrorIs(t, err, ErrNotFound)

	z := archive.NewZip()
	noMeta, err := z.Create([]archive.File{{Path: "content/a.yaml", Content: []byte("x")}}, archive.CreateOptions{Store: true})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile("/nometa.card", noMeta))
	_, err = p.GetMetadata("/nometa.card")
	assert.ErrorIs(t, err, ErrReadError)

	badMeta, err := z.Create([]archive.File{{Path: card.MetadataPath, Content: []byte("card_id: [x\n")}}, archive.CreateOptions{Store: true})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile("/badmeta.card", badMeta))
	_, err = p.GetMetadata("/badmeta.card")
	assert.ErrorIs(t, err, ErrReadError)

	require.NoError(t, fs.WriteTextFile("/garbage.card", "nope"))
	_, err = p.GetMetadata("/garbage.card")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidatePaths(t *testing.T) {
	fs := fsys.NewMemory()
	p := newTestPacker(fs)

	r := p.Validate("/missing", validator.Options{})
	assert.False(t, r.Valid)
	require.Len(t, r.Checks, 1)
	assert.Equal(t, "validation.error", r.Checks[0].Name)

	require.NoError(t, fs.WriteTextFile("/garbage.card", "nope"))
	r = p.Validate("/garbage.card", validator.Options{Level: validator.LevelFile})
	assert.False(t, r.Valid)
	assert.Equal(t, validator.LevelFile, r.Level)
	require.Len(t, r.Checks, 1)
	assert.Equal(t, "archive.format", r.Checks[0].Name)
}

func TestProgress(t *testing.T) {
	fs := fsys.NewMemory()
	writeProject(t, fs, "/src", demoProject())

	var stages []Stage
	p := newTestPacker(fs, WithProgress(func(pr Progress) error {
		if len(stages) == 0 || stages[len(stages)-1] != pr.Stage {
			stages = append(stages, pr.Stage)
		}
		return nil
	}))

	opts := DefaultPackOptions()
	opts.Checksum = true
	_, err := p.Pack("/src", "/demo.card", opts)
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageValidate, StageCollect, StageChecksum, StageArchive, StageWrite}, stages)

	stages = nil
	_, err = p.Unpack("/demo.card", "/dst", DefaultUnpackOptions())
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageExtract, StageValidate}, stages)

	stop := errors.New("stop")
	failing := newTestPacker(fs, WithProgress(func(pr Progress) error {
		if pr.Stage == StageArchive {
			return stop
		}
		return nil
	}))
	_, err = failing.Pack("/src", "/other.card", DefaultPackOptions())
	assert.ErrorIs(t, err, stop)
	assert.ErrorIs(t, err, ErrWriteError)
	failure := Describe(err)
	assert.Equal(t, "WRITE_ERROR", failure.Code)
	assert.Contains(t, failure.Message, "archive")
	exists, err := fs.Exists("/other.card")
	require.NoError(t, err)
	assert.False(t, exists)

	early := newTestPacker(fs, WithProgress(func(pr Progress) error {
		if pr.Stage == StageCollect {
			return stop
		}
		return nil
	}))
	_, err = early.Pack("/src", "/other.card", DefaultPackOptions())
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, KindReadError, KindOf(err))
}

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		card, system string
		compatible   bool
		reason       []string
	}{
		{"1.2.0", "1.5.0", true, nil},
		{"1.5.0", "1.5.0", true, nil},
		{"1.5.9", "1.5.0", true, nil},
		{"2.0.0", "1.5.0", false, []string{"2", "1", "major"}},
		{"1.6.0", "1.5.0", true, []string{"newer"}},
		{"1", "1.0.0", true, nil},
		{"v1.x.3", "1.0.0", true, nil},
		{"", "1.0.0", false, []string{"invalid version format"}},
		{"1.0.0", "abc", false, []string{"invalid version format"}},
	}
	for _, tt := range tests {
		t.Run(tt.card+"_"+tt.system, func(t *testing.T) {
			got := CheckCompatibility(tt.card, tt.system)
			assert.Equal(t, tt.compatible, got.Compatible)
			if tt.reason == nil {
				assert.Empty(t, got.Reason)
			}
			for _, s := range tt.reason {
				assert.Contains(t, got.Reason, s)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	err := newError(KindWriteError, "pack", "/out.card", "", errors.New("disk full"))
	assert.Equal(t, "pack /out.card: write error: disk full", err.Error())
	assert.ErrorIs(t, err, ErrWriteError)
	assert.NotErrorIs(t, err, ErrReadError)

	assert.Equal(t, "UNKNOWN", Describe(errors.New("plain")).Code)
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))

	for k := KindNotFound; k <= KindPathSecurityViolation; k++ {
		assert.NotEqual(t, "UNKNOWN", k.Code())
		assert.NotContains(t, k.String(), "kind(")
	}
}
