package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"reelgrab/pkg/models"
)

const (
	barWidth  = 20
	lineWidth = 120
)

// RunDisplay renders orchestrator progress as a single rewritten terminal
// line and prints the per-item summary once the run finishes. Its Progress
// method matches models.ProgressFunc, so it plugs straight into the
// downloader. Safe for concurrent use.
type RunDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	total      int
	seen       int
	current    string
	percent    int
	message    string
	activeLine bool
	plain      bool
}

// NewRunDisplay creates a display for a run of total items, writing to
// stdout. Line rewriting is used only when stdout is a terminal.
func NewRunDisplay(total int) *RunDisplay {
	return &RunDisplay{
		out:   os.Stdout,
		total: total,
		plain: !term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// SetOutput redirects rendering to w and switches to plain line-per-event
// mode, which is what logs and tests want.
func (d *RunDisplay) SetOutput(w io.Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = w
	d.plain = true
}

// Progress consumes one progress event. An empty url is a run-level
// message and gets its own line.
func (d *RunDisplay) Progress(url string, percent int, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if url == "" {
		d.clearLine()
		fmt.Fprintln(d.out, Dim(message))
		return
	}

	if url != d.current {
		d.current = url
		d.seen++
	}
	d.percent = percent
	d.message = message

	if percent >= 100 {
		d.clearLine()
		fmt.Fprintf(d.out, "%s %s %s\n", Green("✓"), Cyan(shortLabel(url)), message)
		d.current = ""
		return
	}
	d.render()
}

func (d *RunDisplay) render() {
	label := shortLabel(d.current)
	if d.plain {
		fmt.Fprintf(d.out, "[%d/%d] %s %3d%% %s\n", d.seen, d.total, label, d.percent, d.message)
		return
	}

	filled := d.percent * barWidth / 100
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
	line := fmt.Sprintf("[%d/%d] %s [%s] %3d%% %s",
		d.seen, d.total, Cyan(label), bar, d.percent, d.message)

	fmt.Fprintf(d.out, "\r%s\r%s", strings.Repeat(" ", lineWidth), line)
	d.activeLine = true
}

// Finish clears any live line and prints the run summary table.
func (d *RunDisplay) Finish(summary *models.RunSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clearLine()
	if summary == nil {
		return
	}

	fmt.Fprintln(d.out)
	glyph := Green("✓")
	if summary.Completed == 0 && summary.Failed > 0 {
		glyph = Red("✗")
	} else if summary.Failed > 0 {
		glyph = Yellow("⚠")
	}
	fmt.Fprintf(d.out, "%s Completed %d of %d reel(s) in %s\n",
		glyph, summary.Completed, summary.Requested, formatDuration(summary.Duration))

	for _, item := range summary.Items {
		d.printItem(item)
	}

	if summary.WorkspaceDir != "" {
		fmt.Fprintf(d.out, "  %s %s\n", Magenta("→"), summary.WorkspaceDir)
	}
}

func (d *RunDisplay) printItem(item *models.MediaItem) {
	label := item.Shortcode
	if label == "" {
		label = shortLabel(item.SourceURL)
	}

	if item.Status != models.StatusCompleted {
		fmt.Fprintf(d.out, "  %s %s  %s\n", Red("✗"), Cyan(label), Red(item.ErrorMessage))
		return
	}

	line := fmt.Sprintf("  %s %s", Green("✓"), Cyan(label))
	if produced := producedArtifacts(item); produced != "" {
		line += "  " + Dim(produced)
	}
	if size := itemSize(item); size > 0 {
		line += "  " + Dim(formatBytes(size))
	}
	fmt.Fprintln(d.out, line)

	// Completed items can still carry an annotation, e.g. a skipped or
	// failed transcription.
	if item.ErrorMessage != "" {
		fmt.Fprintf(d.out, "      %s %s\n", Yellow("⚠"), item.ErrorMessage)
	}
}

func (d *RunDisplay) clearLine() {
	if !d.activeLine {
		return
	}
	fmt.Fprintf(d.out, "\r%s\r", strings.Repeat(" ", lineWidth))
	d.activeLine = false
}

// producedArtifacts lists the artifacts recorded as produced, in the
// contract's fixed order.
func producedArtifacts(item *models.MediaItem) string {
	order := []string{
		models.ArtifactVideo,
		models.ArtifactThumbnail,
		models.ArtifactAudio,
		models.ArtifactCaption,
		models.ArtifactTranscript,
	}
	var produced []string
	for _, name := range order {
		if item.Artifacts[name] == models.ArtifactProduced {
			produced = append(produced, name)
		}
	}
	return strings.Join(produced, ", ")
}

// itemSize sums the on-disk sizes of the item's artifact files. Missing
// files are simply not counted.
func itemSize(item *models.MediaItem) int64 {
	var total int64
	for _, path := range []string{
		item.VideoPath, item.ThumbnailPath, item.AudioPath,
		item.CaptionPath, item.TranscriptPath,
	} {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil {
			total += info.Size()
		}
	}
	return total
}

// shortLabel reduces a reel URL to its identifier for compact display,
// falling back to the raw string when there is no path to split.
func shortLabel(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = strings.TrimRight(trimmed[:i], "/")
	}
	if i := strings.LastIndex(trimmed, "/"); i >= 0 && i+1 < len(trimmed) {
		return trimmed[i+1:]
	}
	return url
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// formatBytes formats bytes in a human-readable way
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
