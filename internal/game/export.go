package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// exportResults appends the final standings of a finished game to a text
// file. Export is best-effort; callers log and move on when it fails.
func exportResults(filename, sessionID string, results []ResultEntry) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Game %s finished %s\n", sessionID, time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("-", 50) + "\n")
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s - %d points (%d correct)\n", r.Rank, r.Name, r.Score, r.CorrectAnswers))
	}
	sb.WriteString("\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}
