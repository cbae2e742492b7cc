package main

import (
	"fmt"
	"io"
	"strings"

	"ArticleRelay/internal/domain"
)

func printIngest(w io.Writer, r domain.IngestReport) {
	fmt.Fprintf(w, "run %s %s: %s\n", r.RunID, r.URL, r.State)
	if r.ArticleID != "" {
		fmt.Fprintf(w, "  article %s %q\n", r.ArticleID, r.Article.Title)
	}
	for _, o := range r.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "  %-10s failed: %v\n", o.Platform, o.Err)
			continue
		}
		fmt.Fprintf(w, "  %-10s content %s\n", o.Platform, o.ContentID)
	}
	if r.ImageURL != "" {
		fmt.Fprintf(w, "  image %s\n", r.ImageURL)
	} else if r.ImageErr != nil {
		fmt.Fprintf(w, "  image failed: %v\n", r.ImageErr)
	}
}

func printPublish(w io.Writer, r domain.PublishReport) {
	fmt.Fprintf(w, "run %s content %s: %s\n", r.RunID, r.ContentID, r.State)
	if r.PostID != "" {
		fmt.Fprintf(w, "  posted to %s as %s\n", r.Platform, r.PostID)
	}
}

func printArticle(w io.Writer, a domain.Article) {
	fmt.Fprintf(w, "%s  %s\n%s (%s)\n\n%s\n", a.RecordID, a.CreatedAt.Format("2006-01-02 15:04"), a.Title, a.Source, a.Summary)
}

func printContent(w io.Writer, c domain.Content) {
	fmt.Fprintf(w, "%s  %s  %s  article %s\n", c.RecordID, c.Platform, c.Status, c.ArticleRecordID)
	if c.ImageURL != "" {
		fmt.Fprintf(w, "image %s\n", c.ImageURL)
	}
	fmt.Fprintf(w, "\n%s\n", c.Text)
}

func notFound(err error, what string) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("no %s stored yet", what)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
