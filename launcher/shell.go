package launcher

import (
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/astromechza/etcpwdparse"

	nserrors "nsctl-go/errors"
)

// candidateShellDirs is searched, in order, for a bash binary when neither
// the login shell nor $SHELL names an executable file. Only executability is
// checked; whether a candidate is a POSIX shell is not.
var candidateShellDirs = []string{"/bin", "/usr/bin", "/usr/local/bin"}

// resolveShell implements the shell resolution order: the invoking user's
// login shell, then $SHELL, then a bash found on a fixed search path, then
// plain "sh".
func resolveShell() (string, error) {
	if u, err := user.Current(); err == nil {
		if shell := loginShell(u.Username); shell != "" && isExecutable(shell) {
			return shell, nil
		}
	}

	if shell := os.Getenv("SHELL"); shell != "" && isExecutable(shell) {
		return shell, nil
	}

	for _, dir := range candidateShellDirs {
		candidate := filepath.Join(dir, "bash")
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, nil
	}

	return "", nserrors.ErrShellNotFound
}

// loginShell looks up username's shell field in /etc/passwd. The os/user
// package does not expose this on Linux, so the lookup goes through
// etcpwdparse instead of hand-parsing the file.
func loginShell(username string) string {
	cache, err := etcpwdparse.NewLookupCache()
	if err != nil {
		return ""
	}
	entry, ok := cache.LookupUserByName(username)
	if !ok {
		return ""
	}
	return entry.Shell()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}

// initShimName is the executable name of the external init shim.
const initShimName = "richard-parker"

// initShimSearchDirs holds the two conventional library directories that
// resolveInitShim searches after $PATH. No compiled-in installation
// directory is searched.
var initShimSearchDirs = []string{"/usr/local/lib/nsctl-go", "/usr/lib/nsctl-go"}

// resolveInitShim locates the external init shim executable.
func resolveInitShim() (string, error) {
	if path, err := exec.LookPath(initShimName); err == nil {
		return path, nil
	}
	for _, dir := range initShimSearchDirs {
		candidate := filepath.Join(dir, initShimName)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", nserrors.WrapWithDetail(nserrors.ErrShellNotFound, nserrors.ErrIo, "launcher.resolveInitShim", "init shim not found on PATH or in "+strings.Join(initShimSearchDirs, ", "))
}
