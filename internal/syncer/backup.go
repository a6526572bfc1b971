// Package syncer reconciles a device's ledger with the backups kept in a
// remote blob store.
//
// The protocol compares a single version number. The higher version wins and
// replaces the other side wholesale, so edits made on two devices between
// sync cycles are not merged: the side with the lower version loses them.
package syncer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dvloznov/ledgr/internal/blobstore"
)

const (
	backupPrefix = "backup_"
	backupSuffix = ".json"
)

// BackupName returns the file name of the backup holding version.
func BackupName(version int64) string {
	return backupPrefix + strconv.FormatInt(version, 10) + backupSuffix
}

// ParseBackupVersion extracts the version from a backup file name. It
// reports false for names that do not follow the backup naming scheme.
func ParseBackupVersion(name string) (int64, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupSuffix)
	if digits == "" || strings.ContainsAny(digits, "+-") {
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Backup is a backup file together with the version parsed from its name.
type Backup struct {
	blobstore.FileInfo
	Version int64 `json:"version"`
}

// backups keeps the files that are backups and orders them newest first.
func backups(files []blobstore.FileInfo) []Backup {
	out := make([]Backup, 0, len(files))
	for _, f := range files {
		v, ok := ParseBackupVersion(f.Name)
		if !ok {
			continue
		}
		out = append(out, Backup{FileInfo: f, Version: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version > out[j].Version
		}
		return out[i].ModifiedTime.After(out[j].ModifiedTime)
	})
	return out
}
