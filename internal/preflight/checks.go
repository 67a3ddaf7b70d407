package preflight

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"dropwatch/internal/config"
)

// CheckDirectoryAccess verifies that path is a directory the process can
// read, write, and traverse.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minMiB
// available to unprivileged users.
func CheckFreeSpace(name, path string, minMiB uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	freeMiB := stat.Bavail * uint64(stat.Bsize) / (1 << 20)
	detail := fmt.Sprintf("%d MiB free (minimum %d MiB)", freeMiB, minMiB)
	if freeMiB < minMiB {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckShareLink probes the shared folder link without downloading the
// archive. It uses a 10-second timeout and a single attempt.
func CheckShareLink(ctx context.Context, link, userAgent string) Result {
	const name = "Dropbox link"

	target, err := config.NormalizeShareLink(link)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, target, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("build request: %v", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (HTTP %d)", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		return Result{Name: name, Detail: "HTTP 404 (link revoked or mistyped)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
}
