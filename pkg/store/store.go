// Package store persists cartridge RAM backups to disk: one folder per
// cartridge, timestamped save files written atomically, and the newest
// backup picked by default on restore.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash"
	"github.com/gbcart/reader/pkg/utils"
)

const backupFolder = "backups"

// CartridgeID returns a stable, filesystem-safe identifier for a
// cartridge, derived from its header bytes so that two different carts
// sharing a title never collide.
func CartridgeID(header []byte) string {
	return strconv.FormatUint(xxhash.Sum64(header), 16)
}

// New writes data as a new timestamped backup under backups/<id>/,
// using a temp-file-then-rename so a crash mid-write never leaves a
// corrupt .sav file behind.
func New(id string, data []byte) (string, error) {
	dir := filepath.Join(backupFolder, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.sav", time.Now().Unix()))

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// Latest returns the path of the newest backup for id, or "" if none
// exists.
func Latest(id string) (string, error) {
	dir := filepath.Join(backupFolder, id)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var saves []os.DirEntry
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sav") {
			continue
		}
		saves = append(saves, e)
	}
	if len(saves) == 0 {
		return "", nil
	}

	sort.Slice(saves, func(i, j int) bool {
		ii, _ := saves[i].Info()
		ij, _ := saves[j].Info()
		return ii.ModTime().After(ij.ModTime())
	})

	return filepath.Join(dir, saves[0].Name()), nil
}

// Load reads a backup from path, transparently decompressing if it was
// stored compressed.
func Load(path string) ([]byte, error) {
	return utils.LoadImage(path)
}
