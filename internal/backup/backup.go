// Package backup provides tar.gz-based backup and restore for the range
// cache database, the per-site history files and the config file.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/HerbHall/rangeping/internal/config"
	"github.com/HerbHall/rangeping/internal/store"
)

// Archive member prefixes.
const (
	historyPrefix = "history/"
	configPrefix  = "config/"
)

// ErrExists is returned by Restore when a target file exists and force is
// not set.
var ErrExists = errors.New("file exists")

// Backup writes a tar.gz archive holding the database at dbPath, every
// history CSV in historyDir and, if present, the config file. The WAL is
// checkpointed first so the database file is self-contained.
func Backup(ctx context.Context, dbPath, historyDir, configPath, outputPath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database file not found: %w", err)
	}
	if err := checkpointWAL(ctx, dbPath); err != nil {
		return fmt.Errorf("WAL checkpoint failed: %w", err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	if err := addFileToTar(tw, dbPath, filepath.Base(dbPath)); err != nil {
		return fmt.Errorf("adding database to archive: %w", err)
	}

	if historyDir != "" {
		files, err := filepath.Glob(filepath.Join(historyDir, "*.csv"))
		if err != nil {
			return fmt.Errorf("listing history: %w", err)
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if strings.HasPrefix(filepath.Base(f), ".") {
				continue
			}
			if err := addFileToTar(tw, f, historyPrefix+filepath.Base(f)); err != nil {
				return fmt.Errorf("adding %s to archive: %w", f, err)
			}
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := addFileToTar(tw, configPath, configPrefix+filepath.Base(configPath)); err != nil {
				return fmt.Errorf("adding config to archive: %w", err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return outFile.Close()
}

// Targets says where Restore puts each kind of archive member.
type Targets struct {
	DBPath     string // the database file
	HistoryDir string // history/*
	ConfigDir  string // config/*
}

// TargetsFor maps members back to the locations settings resolves to.
// The config member goes next to configFile, or to the working directory
// when no config file was loaded.
func TargetsFor(settings config.Settings, configFile string) Targets {
	configDir := "."
	if configFile != "" {
		configDir = filepath.Dir(configFile)
	}
	return Targets{
		DBPath:     settings.Cache.Path,
		HistoryDir: settings.History.Dir,
		ConfigDir:  configDir,
	}
}

// FlatTargets restores everything into dir, with the database as
// dir/lookup.db.
func FlatTargets(dir string) Targets {
	return Targets{
		DBPath:     filepath.Join(dir, "lookup.db"),
		HistoryDir: dir,
		ConfigDir:  dir,
	}
}

// Restore unpacks an archive written by Backup into the locations named by
// t. Existing files are only replaced when force is set. It returns the
// restored paths.
func Restore(ctx context.Context, inputPath string, t Targets, force bool) ([]string, error) {
	if t.DBPath == "" || t.HistoryDir == "" || t.ConfigDir == "" {
		return nil, errors.New("restore targets are incomplete")
	}

	inFile, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer inFile.Close()

	gr, err := gzip.NewReader(inFile)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	defer gr.Close()

	var (
		restored []string
		sawDB    bool
	)
	tr := tar.NewReader(gr)
	for {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return restored, nil
		}
		if err != nil {
			return restored, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			return restored, fmt.Errorf("archive member %q is not a regular file", hdr.Name)
		}

		name, err := memberName(hdr.Name)
		if err != nil {
			return restored, err
		}

		var target string
		switch clean := path.Clean(hdr.Name); {
		case strings.HasPrefix(clean, historyPrefix):
			target = filepath.Join(t.HistoryDir, name)
		case strings.HasPrefix(clean, configPrefix):
			target = filepath.Join(t.ConfigDir, name)
		default:
			if sawDB {
				return restored, fmt.Errorf("archive holds more than one database (%q)", hdr.Name)
			}
			sawDB = true
			target = t.DBPath
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return restored, fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		if err := extract(tr, target, force); err != nil {
			return restored, err
		}
		restored = append(restored, target)
	}
}

// memberName maps an archive member to its bare file name, rejecting
// anything that could escape its target directory.
func memberName(member string) (string, error) {
	clean := path.Clean(member)
	rest := strings.TrimPrefix(strings.TrimPrefix(clean, historyPrefix), configPrefix)
	if rest == "" || rest == "." || rest == ".." || strings.Contains(rest, "/") ||
		strings.Contains(rest, `\`) || path.IsAbs(member) {
		return "", fmt.Errorf("archive member %q has an unsafe path", member)
	}
	return rest, nil
}

func extract(r io.Reader, target string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(target, flags, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s (use force to overwrite)", ErrExists, target)
		}
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return f.Close()
}

func checkpointWAL(ctx context.Context, dbPath string) error {
	s, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Checkpoint(ctx)
}

// addFileToTar adds a single file to the tar archive under the given name.
func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}
