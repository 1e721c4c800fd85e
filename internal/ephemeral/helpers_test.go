package ephemeral

import "runtime"

// Windows cannot read a file whose directory entry was removed while open.
func runtimeIsWindows() bool { return runtime.GOOS == "windows" }
