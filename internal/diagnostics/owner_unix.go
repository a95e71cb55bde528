//go:build !windows

package diagnostics

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// ownerOf names the user owning the file, for permission hints.
func ownerOf(info os.FileInfo) string {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return ""
	}
	uid := strconv.FormatUint(uint64(stat.Uid), 10)
	u, err := user.LookupId(uid)
	if err != nil || u == nil || u.Username == "" {
		return fmt.Sprintf("UID %s", uid)
	}
	return u.Username
}
