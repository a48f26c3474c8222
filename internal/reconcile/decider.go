// internal/reconcile/decider.go

package reconcile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Resolution is the outcome of a source-of-truth decision for one file.
type Resolution int

const (
	// UseDatabase keeps the database values; in update-filenames mode the
	// file is also renamed to match them.
	UseDatabase Resolution = iota
	// UseFilename updates the database record from the filename values.
	UseFilename
	// SkipFile leaves both sides untouched.
	SkipFile
	// StopRun ends processing after the current file.
	StopRun
)

// Conflict describes one file whose filename metadata disagrees with its
// database record.
type Conflict struct {
	FileName string
	DBArtist string
	DBTitle  string
	DBAlbum  string
	FileMeta ParsedName
}

// Decider picks a resolution for a conflict. Batch modes use a fixed
// policy, interactive runs use the console adapter, tests use a stub.
type Decider interface {
	Decide(c Conflict) (Resolution, error)
}

// Policy is a Decider that returns the same resolution for every conflict.
type Policy Resolution

// Decide implements Decider.
func (p Policy) Decide(Conflict) (Resolution, error) {
	return Resolution(p), nil
}

// ConsoleDecider prompts on a terminal for each conflict.
type ConsoleDecider struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// Decide implements Decider with a blocking console prompt.
func (d *ConsoleDecider) Decide(c Conflict) (Resolution, error) {
	if d.reader == nil {
		d.reader = bufio.NewReader(d.In)
	}

	fmt.Fprintf(d.Out, "\n%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(d.Out, "File: %s\n", c.FileName)
	fmt.Fprintf(d.Out, "  database: artist=%q title=%q album=%q\n", c.DBArtist, c.DBTitle, c.DBAlbum)
	fmt.Fprintf(d.Out, "  filename: artist=%q title=%q album=%q\n", c.FileMeta.Artist, c.FileMeta.Title, c.FileMeta.Album)
	fmt.Fprintln(d.Out, "Options: [d] keep database values  [f] filename wins (update database)  [s] skip  [e] end run")

	for {
		fmt.Fprint(d.Out, "choose (d/f/s/e): ")
		line, err := d.reader.ReadString('\n')
		if err != nil {
			return SkipFile, fmt.Errorf("read console choice: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "d", "database":
			return UseDatabase, nil
		case "f", "filename":
			return UseFilename, nil
		case "s", "skip":
			return SkipFile, nil
		case "e", "end":
			return StopRun, nil
		default:
			fmt.Fprintln(d.Out, "invalid choice, enter d, f, s or e")
		}
	}
}
