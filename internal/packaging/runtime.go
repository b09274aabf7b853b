package packaging

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Lambda layers surface their content under a runtime-specific library root.
var runtimeLibraryPaths = []struct {
	runtime *regexp.Regexp
	path    string
}{
	{regexp.MustCompile(`^python\d+\.\d+$`), "python"},
	{regexp.MustCompile(`^nodejs\d+(\.x)?$`), "nodejs"},
}

// RuntimeLibraryPath returns the in-archive library root for a runtime
// identifier, e.g. "python" for "python3.12".
func RuntimeLibraryPath(runtime string) (string, error) {
	for _, entry := range runtimeLibraryPaths {
		if entry.runtime.MatchString(runtime) {
			return entry.path, nil
		}
	}
	return "", fmt.Errorf("unsupported runtime: %q", runtime)
}

// CommonRuntimeLibraryPath resolves the single library root shared by all of
// a layer's compatible runtimes. Runtimes mapping to more than one distinct
// root cannot share a layer archive.
func CommonRuntimeLibraryPath(runtimes []string) (string, error) {
	distinct := make(map[string]struct{})
	var common string
	for _, runtime := range runtimes {
		path, err := RuntimeLibraryPath(runtime)
		if err != nil {
			return "", err
		}
		distinct[path] = struct{}{}
		common = path
	}
	if len(distinct) > 1 {
		paths := make([]string, 0, len(distinct))
		for path := range distinct {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		return "", fmt.Errorf("runtimes map to multiple root paths: %s", strings.Join(paths, ", "))
	}
	return common, nil
}
