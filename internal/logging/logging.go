package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const logTimeLayout = "20060102_150405"

// LogFilePath names the log file of one extension run: <dir>/<name>.<start>.log.
func LogFilePath(logsDir, extensionName string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", extensionName, sessionStart.Format(logTimeLayout)))
}

// OpenLogFile creates logsDir if needed and opens the run's log file for
// appending. A file left over under the same name is moved to "<path>.old".
func OpenLogFile(logsDir, extensionName string, sessionStart time.Time) (*os.File, string, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, "", fmt.Errorf("create logs directory: %w", err)
	}
	path := LogFilePath(logsDir, extensionName, sessionStart)
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, path, fmt.Errorf("rotate existing log: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, path, fmt.Errorf("open log file: %w", err)
	}
	return f, path, nil
}

// PruneLogs deletes all but the newest keep log files of extensionName in
// logsDir. keep <= 0 disables pruning. It returns the removed paths.
func PruneLogs(logsDir, extensionName string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(logsDir, extensionName+".*.log"))
	if err != nil {
		return nil, err
	}

	var runs []string
	for _, path := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), extensionName+"."), ".log")
		if _, err := time.Parse(logTimeLayout, stamp); err == nil {
			runs = append(runs, path)
		}
	}

	// the timestamp layout sorts lexically
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	var removed []string
	for _, path := range runs[min(keep, len(runs)):] {
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}
