package engine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var numericSuffixRe = regexp.MustCompile(`^.*-([0-9]+)$`)

// BackupNameHint derives a compact label from a set of folders whose names
// share a prefix and a contiguous numeric suffix range, e.g.
// FG-2020-0007..FG-2020-0009 becomes "FG-2020-0007 => 0009".
// Returns "" when the folder names don't fit the scheme.
func BackupNameHint(folders []string) string {
	if len(folders) == 0 {
		return ""
	}
	sorted := append([]string(nil), folders...)
	sort.Strings(sorted)

	names := make([]string, len(sorted))
	for i, folder := range sorted {
		names[i] = filepath.Base(folder)
		if len(names[i]) != len(names[0]) {
			return ""
		}
	}

	suffixes := make([]string, len(names))
	numbers := make([]int, len(names))
	for i, name := range names {
		match := numericSuffixRe.FindStringSubmatch(name)
		if match == nil {
			return ""
		}
		suffixes[i] = match[1]
		if len(suffixes[i]) != len(suffixes[0]) {
			return ""
		}
		n, err := strconv.Atoi(suffixes[i])
		if err != nil {
			return ""
		}
		numbers[i] = n
	}

	sort.Ints(numbers)
	first, last := numbers[0], numbers[len(numbers)-1]
	// The suffixes must form exactly the contiguous range [first..last].
	if last-first+1 != len(numbers) {
		return ""
	}
	for i, n := range numbers {
		if n != first+i {
			return ""
		}
	}

	width := len(suffixes[0])
	prefix := names[0][:len(names[0])-width]
	firstStr := fmt.Sprintf("%0*d", width, first)
	lastStr := fmt.Sprintf("%0*d", width, last)

	switch {
	case last == first:
		return prefix + firstStr
	case last == first+1:
		return fmt.Sprintf("%s%s,%s", prefix, firstStr, lastStr)
	default:
		return fmt.Sprintf("%s%s => %s", prefix, firstStr, lastStr)
	}
}
