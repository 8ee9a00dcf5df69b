// Package report renders the end-of-session crawl summary as Markdown.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/imgcrawl/imgcrawl/internal/crawler"
)

// Data is everything the report needs from a finished session.
type Data struct {
	SessionID string
	Seed      string
	StartedAt time.Time
	Duration  time.Duration
	Stats     crawler.Snapshot
}

// Write renders the report. Non-image skips get their own warning
// section: a site that consistently serves non-image content for image
// candidates is a compatibility problem worth surfacing, not a detail
// to bury in debug logs.
func Write(w io.Writer, d Data) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + d.SessionID + "`"},
			{"Seed URL", "`" + d.Seed + "`"},
			{"Started", d.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", d.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	md.H2("Outcomes")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Count"},
		Rows: [][]string{
			{"Pages fetched", strconv.Itoa(d.Stats.PagesFetched)},
			{"Pages failed", strconv.Itoa(d.Stats.PagesFailed)},
			{"Images saved", strconv.Itoa(d.Stats.ImagesSaved)},
			{"Images skipped", strconv.Itoa(d.Stats.ImagesSkipped)},
			{"Images failed", strconv.Itoa(d.Stats.ImagesFailed)},
			{"Download retries", strconv.Itoa(d.Stats.Retries)},
		},
	})
	md.PlainText("")

	if len(d.Stats.NonImageSkips) > 0 {
		md.H2("Non-image responses")
		md.PlainText(fmt.Sprintf(
			"%d image candidate(s) served non-image content. "+
				"If this list is long, the site likely serves images through a mechanism the crawler does not recognize.",
			len(d.Stats.NonImageSkips),
		))
		md.PlainText("")
		rows := make([][]string, 0, len(d.Stats.NonImageSkips))
		for _, skip := range d.Stats.NonImageSkips {
			contentType := skip.ContentType
			if contentType == "" {
				contentType = "(none)"
			}
			rows = append(rows, []string{"`" + skip.URL + "`", contentType})
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Content-Type"},
			Rows:   rows,
		})
	}

	return md.Build()
}

// WriteFile renders the report to the given path.
func WriteFile(path string, d Data) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := Write(f, d); err != nil {
		_ = f.Close()
		return fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	return nil
}
