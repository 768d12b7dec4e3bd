package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"univdl/internal/platform"
)

// maxBinarySize guards against decompression bombs; vendored executables
// are well below it.
const maxBinarySize = 512 << 20

// member is an archive entry considered for extraction.
type member struct {
	name string
	open func() (io.ReadCloser, error)
}

// extract pulls the executable named want (a platform executable name such
// as "ffmpeg.exe") out of archive and writes it to dir/want. The returned
// path is the extracted file.
func extract(kind Kind, archive, dir, want string, p platform.Platform) (string, error) {
	out := filepath.Join(dir, want)
	switch kind {
	case KindRaw:
		if err := os.Rename(archive, out); err != nil {
			return "", fmt.Errorf("move executable: %w", err)
		}
		return out, nil
	case KindGz:
		return out, extractGz(archive, out)
	case KindZip:
		return out, extractZip(archive, out, want, p)
	case KindTarGz:
		return out, extractTarGz(archive, out, want, p)
	default:
		return "", fmt.Errorf("unsupported artifact kind %q", kind)
	}
}

func extractGz(archive, out string) error {
	file, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer file.Close()
	reader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("open gzip: %w", err)
	}
	defer reader.Close()
	return writeExecutable(out, reader)
}

func extractZip(archive, out, want string, p platform.Platform) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	members := make([]member, 0, len(reader.File))
	for _, entry := range reader.File {
		if err := checkMemberName(entry.Name); err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		members = append(members, member{name: entry.Name, open: entry.Open})
	}
	chosen, ok := pickMember(members, want, p)
	if !ok {
		return fmt.Errorf("no executable matching %q in archive", want)
	}
	rc, err := chosen.open()
	if err != nil {
		return fmt.Errorf("open %s: %w", chosen.name, err)
	}
	defer rc.Close()
	return writeExecutable(out, rc)
}

func extractTarGz(archive, out, want string, p platform.Platform) error {
	file, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer file.Close()
	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	// A tar stream cannot be rewound, so the first pass records candidate
	// names and the second pass copies the chosen one.
	var names []member
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if err := checkMemberName(header.Name); err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		names = append(names, member{name: header.Name})
	}
	chosen, ok := pickMember(names, want, p)
	if !ok {
		return fmt.Errorf("no executable matching %q in archive", want)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := gz.Reset(file); err != nil {
		return fmt.Errorf("reopen gzip: %w", err)
	}
	tr = tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("archive member %s vanished", chosen.name)
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if header.Name == chosen.name && header.Typeflag == tar.TypeReg {
			return writeExecutable(out, tr)
		}
	}
}

// checkMemberName rejects entries that would escape the extraction
// directory.
func checkMemberName(name string) error {
	cleaned := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return fmt.Errorf("unsafe path in archive: %q", name)
	}
	return nil
}

// pickMember prefers an exact base-name match, then a base name starting
// with the tool name, then the first entry that looks executable.
func pickMember(members []member, want string, p platform.Platform) (member, bool) {
	stem := strings.TrimSuffix(want, ".exe")
	for _, m := range members {
		if strings.EqualFold(path.Base(m.name), want) {
			return m, true
		}
	}
	for _, m := range members {
		base := path.Base(m.name)
		if strings.HasPrefix(base, stem) && looksExecutable(base, p) {
			return m, true
		}
	}
	for _, m := range members {
		if looksExecutable(path.Base(m.name), p) {
			return m, true
		}
	}
	return member{}, false
}

func looksExecutable(base string, p platform.Platform) bool {
	if base == "" || strings.HasPrefix(base, ".") {
		return false
	}
	if p.IsWindows() {
		return strings.EqualFold(path.Ext(base), ".exe")
	}
	return path.Ext(base) == ""
}

func writeExecutable(out string, r io.Reader) error {
	file, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(out), err)
	}
	written, err := io.Copy(file, io.LimitReader(r, maxBinarySize+1))
	closeErr := file.Close()
	if err != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(out), err)
	}
	if written > maxBinarySize {
		return fmt.Errorf("extract %s: exceeds %d bytes", filepath.Base(out), maxBinarySize)
	}
	return closeErr
}
