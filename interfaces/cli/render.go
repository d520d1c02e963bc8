package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"threadsctl/domain/model"
)

const previewLength = 60

func renderProfile(w io.Writer, p *model.Profile) {
	fmt.Fprintf(w, "@%s (%s)\n", p.Username, p.ID)
	if p.Name != "" {
		fmt.Fprintln(w, p.Name)
	}
	if p.Biography != "" {
		fmt.Fprintln(w, p.Biography)
	}
}

func renderPublished(w io.Writer, res model.PublishResult) {
	fmt.Fprintf(w, "Published %s post %s\n", strings.ToLower(string(res.MediaType)), res.ID)
	if len(res.ChildrenIDs) > 0 {
		fmt.Fprintf(w, "Items: %s\n", strings.Join(res.ChildrenIDs, ", "))
	}
}

func renderPost(w io.Writer, p *model.Post) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", k, v)
		}
	}
	row("id", p.ID)
	row("author", p.Username)
	row("type", p.MediaType)
	row("time", p.Timestamp)
	row("link", p.Permalink)
	row("media", p.MediaURL)
	row("text", p.Text)
	tw.Flush()
}

func renderPosts(w io.Writer, page *model.Page[model.Post]) {
	if len(page.Data) == 0 {
		fmt.Fprintln(w, "No posts.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tAUTHOR\tTEXT")
	for _, p := range page.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Timestamp, p.Username, preview(p.Text))
	}
	tw.Flush()
	if page.Paging != nil && page.Paging.Cursors.After != "" && page.Paging.Next != "" {
		fmt.Fprintf(w, "\nMore: --after %s\n", page.Paging.Cursors.After)
	}
}

func renderInsights(w io.Writer, insights []model.Insight) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tPERIOD\tVALUE")
	for _, in := range insights {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", in.Name, in.Period, insightTotal(in))
	}
	tw.Flush()
}

func renderLimit(w io.Writer, l *model.PublishingLimit) {
	if l.Config != nil {
		fmt.Fprintf(w, "Posts: %d of %d used\n", l.QuotaUsage, l.Config.QuotaTotal)
	} else {
		fmt.Fprintf(w, "Posts: %d used\n", l.QuotaUsage)
	}
	if l.ReplyConf != nil {
		fmt.Fprintf(w, "Replies: %d of %d used\n", l.ReplyUsage, l.ReplyConf.QuotaTotal)
	}
}

func insightTotal(in model.Insight) int64 {
	if in.TotalValue != nil {
		return in.TotalValue.Value
	}
	var sum int64
	for _, v := range in.Values {
		sum += v.Value
	}
	return sum
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= previewLength {
		return text
	}
	return string(r[:previewLength-3]) + "..."
}
