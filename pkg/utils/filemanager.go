// =============================================================================
// Incident Form Converter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the converter, including:
//   - Directory management
//   - Output writes (atomic: temp file + rename)
//   - Archival of previous outputs before they are overwritten
//   - File naming utilities
//   - Run summary generation
//
// ARCHIVAL STRATEGY:
//   - Outputs are written at fixed names (Incidencies.xml, reports), so each
//     run overwrites the previous one.
//   - When an archive directory is configured, the previous file is copied to
//     <archive>/YYYY/MM/DD/HHMMSS_<name> first.
//   - Without an archive directory, files are simply replaced.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the converter.
type FileManager struct {
	// OutputDir is the directory where output files are placed.
	OutputDir string

	// ArchiveDir is the directory for archived output files.
	// Empty disables archiving.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: archive/2024/01/15/093000_Incidencies.xml
	UseTimestampSubdirs bool

	// now returns the current time; replaced in tests.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, archiveDir string) *FileManager {
	return &FileManager{
		OutputDir:           outputDir,
		ArchiveDir:          archiveDir,
		UseTimestampSubdirs: true,
		now:                 time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.OutputDir}
	if fm.ArchiveDir != "" {
		dirs = append(dirs, fm.ArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// OutputPath resolves a file name against the output directory. Absolute
// paths are returned unchanged.
func (fm *FileManager) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(fm.OutputDir, name)
}

// =============================================================================
// OUTPUT WRITES
// =============================================================================

// WriteOutput writes data to name inside the output directory.
//
// PARAMETERS:
//   - name: The output file name (or an absolute path).
//   - data: The file content.
//
// RETURNS:
//   - The path written.
//   - The archive path of the replaced file, or "" if nothing was archived.
//   - An error if archiving or writing fails.
//
// The previous file is archived first; the new content then replaces it
// atomically, so a failed run never leaves a truncated output behind.
func (fm *FileManager) WriteOutput(name string, data []byte) (string, string, error) {
	path := fm.OutputPath(name)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	archived := ""
	if fm.ArchiveDir != "" && FileExists(path) {
		var err error
		archived, err = fm.ArchiveOutputFile(path)
		if err != nil {
			return "", "", err
		}
	}

	if err := WriteFileAtomic(path, data); err != nil {
		return "", "", err
	}

	return path, archived, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveOutputFile copies an output file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
//
// NOTE: Output files are copied, not moved; the caller replaces them next.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(fm.ArchiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	now := fm.now()
	fileName := now.Format("150405") + "_" + filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		subDir := filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
		return filepath.Join(subDir, fileName)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {<key>}     - Any key of params
//   - params: A map of placeholder values.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//   format: "run_summary_{timestamp}_{run}.txt"
//   params: {"run": "1f0c"}
//   output: "run_summary_20241015_093000_1f0c.txt"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}

	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a conversion run.
type RunSummary struct {
	RunID     string
	Operation string
	StartTime time.Time
	EndTime   time.Time

	InputFile string
	XMLFile   string
	Variant   string

	RecordsRead    int
	ValidRecords   int
	InvalidRecords int
	RecordsWritten int

	// FieldFailures lists per-field failure counts, in form order.
	FieldFailures []FieldCount

	// Outputs lists every file written by the run.
	Outputs []OutputFileInfo

	// Invalid lists the records that failed validation.
	Invalid []InvalidRecordInfo
}

// FieldCount is the number of records failing one field.
type FieldCount struct {
	Field string
	Count int
}

// OutputFileInfo describes one written file.
type OutputFileInfo struct {
	Path        string
	ArchivePath string
	Bytes       int
}

// InvalidRecordInfo describes one invalid record.
type InvalidRecordInfo struct {
	RowNumber int
	Errors    []string
}

// WriteSummaryLog writes a run summary to a text file.
//
// PARAMETERS:
//   - summary: The run summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	summaryFileName := GenerateOutputFileName("run_summary_{timestamp}_{run}.txt",
		map[string]string{"run": shortID(summary.RunID)})
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := renderSummary(file, summary); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

// renderSummary writes the summary text to w.
func renderSummary(w io.Writer, summary RunSummary) error {
	writer := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Incident Form Converter - Run Summary\n"+
		rule+"\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Operation:      %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		summary.RunID,
		summary.Operation,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String())

	fmt.Fprintf(writer, "Files:\n")
	if summary.InputFile != "" {
		fmt.Fprintf(writer, "  Input:          %s\n", summary.InputFile)
	}
	fmt.Fprintf(writer, "  XML:            %s\n", summary.XMLFile)
	if summary.Variant != "" {
		fmt.Fprintf(writer, "  Report Variant: %s\n", summary.Variant)
	}
	writer.WriteString("\n")

	fmt.Fprintf(writer, "Statistics:\n"+
		"  Records Read:    %d\n"+
		"  Valid:           %d\n"+
		"  Invalid:         %d\n"+
		"  Records Written: %d\n\n",
		summary.RecordsRead,
		summary.ValidRecords,
		summary.InvalidRecords,
		summary.RecordsWritten)

	if len(summary.FieldFailures) > 0 {
		writer.WriteString("Failures by Field:\n" + thin)
		for _, fc := range summary.FieldFailures {
			fmt.Fprintf(writer, "  %-45s %d\n", fc.Field, fc.Count)
		}
		writer.WriteString("\n")
	}

	if len(summary.Outputs) > 0 {
		writer.WriteString("Output Files:\n" + thin)
		for _, of := range summary.Outputs {
			fmt.Fprintf(writer, "  %s (%d bytes)\n", of.Path, of.Bytes)
			if of.ArchivePath != "" {
				fmt.Fprintf(writer, "    previous version archived to %s\n", of.ArchivePath)
			}
		}
		writer.WriteString("\n")
	}

	if len(summary.Invalid) > 0 {
		writer.WriteString("Invalid Records:\n" + thin)
		for _, ir := range summary.Invalid {
			fmt.Fprintf(writer, "  Record #%d\n", ir.RowNumber)
			for _, e := range ir.Errors {
				fmt.Fprintf(writer, "    - %s\n", e)
			}
		}
		writer.WriteString("\n")
	}

	writer.WriteString(rule + "End of Summary\n")

	return writer.Flush()
}

// shortID returns the first block of a UUID string.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if id == "" {
		return "run"
	}
	return id
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
