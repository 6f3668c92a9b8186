// =============================================================================
// INTERLIS Enum Extractor - File Manager Utility
// =============================================================================
//
// This module provides the file handling used by batch processing:
//   - Transfer file discovery (doublestar glob patterns)
//   - File archival (moving converted inputs, copying outputs)
//   - Output file naming
//   - Processing summary generation
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after successful conversion
//   - Output files are copied to output_archive
//   - Failed files remain in their original location
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for batch conversion.
type FileManager struct {
	// InputDir is scanned for transfer files.
	InputDir string

	// OutputDir receives rendered files.
	OutputDir string

	// InputArchiveDir receives converted input files.
	InputArchiveDir string

	// OutputArchiveDir receives copies of output files.
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2024/01/15/model.xtf
	UseTimestampSubdirs bool

	// ArchiveOnSuccess enables archival after successful conversion.
	ArchiveOnSuccess bool

	// now is the clock used for archive paths and names.
	now func() time.Time
}

// NewFileManager creates a FileManager for the given directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		now:              time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output directory and, when archival is
// enabled, both archive directories.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.OutputDir}
	if fm.ArchiveOnSuccess {
		dirs = append(dirs, fm.InputArchiveDir, fm.OutputArchiveDir)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles returns the regular files under InputDir matching any of
// the doublestar patterns. Paths are joined with InputDir, sorted and free of
// duplicates.
//
// PARAMETERS:
//   - patterns: Glob patterns relative to InputDir, e.g. "**/*.xtf".
//
// RETURNS:
//   - The matching file paths.
//   - An error if a pattern is malformed or InputDir cannot be read.
func (fm *FileManager) DiscoverInputFiles(patterns []string) ([]string, error) {
	if _, err := os.Stat(fm.InputDir); err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	fsys := os.DirFS(fm.InputDir)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid file pattern %q", pattern)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to match pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			path := filepath.Join(fm.InputDir, filepath.FromSlash(match))
			if seen[path] {
				continue
			}
			seen[path] = true
			files = append(files, path)
		}
	}

	sort.Strings(files)
	return files, nil
}

// MatchesAny reports whether path, relative to root, matches one of the
// doublestar patterns. Paths outside root never match.
func MatchesAny(root, path string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the input archive.
//
// RETURNS:
//   - The path to the archived file (filePath itself when archival is off).
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.archivePath(fm.InputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies an output file to the output archive. The output
// stays in place.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.archivePath(fm.OutputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// archivePath places the base name of filePath under archiveDir, inside a
// YYYY/MM/DD subdirectory when UseTimestampSubdirs is set.
func (fm *FileManager) archivePath(archiveDir, filePath string) string {
	if !fm.UseTimestampSubdirs {
		return filepath.Join(archiveDir, filepath.Base(filePath))
	}
	day := filepath.FromSlash(fm.clock().Format("2006/01/02"))
	return filepath.Join(archiveDir, day, filepath.Base(filePath))
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands a naming format into a file name.
//
// PARAMETERS:
//   - format: The format string. Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//             plus one {key} per entry of params.
//   - params: Additional placeholder values, e.g. "original", "format".
//   - ext: The extension to ensure, with dot.
//
// EXAMPLE:
//   format: "{original}_{date}"
//   params: {"original": "Nutzungsplanung"}
//   ext:    ".json"
//   output: "Nutzungsplanung_20240115.json"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()
	pairs := []string{
		"{uuid}", uuid.NewString(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
	}
	// Parameters in key order.
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", params[key])
	}

	result := strings.NewReplacer(pairs...).Replace(format)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// RelativeName returns path relative to InputDir without its extension,
// directories joined by "_": input/a/model.xtf becomes a_model. Paths
// outside InputDir fall back to OriginalName.
func (fm *FileManager) RelativeName(path string) string {
	rel, err := filepath.Rel(fm.InputDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return OriginalName(path)
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	return strings.ReplaceAll(rel, "/", "_")
}

// OriginalName returns the file name of path without its extension.
func OriginalName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a batch run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	Format          string
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalTypes      int
	TotalValues     int
	Warnings        int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a successfully converted file.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	ArchivePath string
	Types       int
	Values      int
	ProcessTime time.Duration
}

// FailedFileInfo describes a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary into outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryFileName := fmt.Sprintf("processing_summary_%s.txt", summary.EndTime.Format("20060102_150405"))
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}

	if err := writeSummary(file, summary); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close summary file: %w", err)
	}

	return summaryPath, nil
}

func writeSummary(w io.Writer, summary ProcessingSummary) error {
	writer := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	fmt.Fprintf(writer, "INTERLIS Enum Extractor - Processing Summary\n"+rule+"\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Format:         %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Enum Types:     %d\n"+
		"  Enum Values:    %d\n"+
		"  Warnings:       %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.Format,
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalTypes,
		summary.TotalValues,
		summary.Warnings)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n" + thin)
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Output:       %s\n", pf.OutputFile)
			if pf.ArchivePath != "" && pf.ArchivePath != pf.InputFile {
				fmt.Fprintf(writer, "  Archived:     %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(writer, "  Types:        %d\n", pf.Types)
			fmt.Fprintf(writer, "  Values:       %d\n", pf.Values)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n" + thin)
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString(rule + "End of Summary\n")
	return writer.Flush()
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

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	if err := destFile.Sync(); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
