package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/mrlokans/bookbridge/internal/config"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/entrypoint"
	"github.com/mrlokans/bookbridge/internal/services"
)

// SearchCommand runs one catalog search from the terminal.
type SearchCommand struct {
	Query   string
	Sources string
	Options entities.SearchOptions
	JSON    bool

	out io.Writer
}

func NewSearchCommand() *SearchCommand {
	return &SearchCommand{out: os.Stdout}
}

func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	fs.StringVar(&cmd.Sources, "sources", "", "Comma-separated catalogs to query (default: all enabled)")
	fs.StringVar(&cmd.Options.Language, "language", "", "ISO 639-1 language code, e.g. en")
	fs.StringVar(&cmd.Options.Author, "author", "", "Author filter")
	fs.StringVar(&cmd.Options.Topic, "topic", "", "Subject filter")
	fs.StringVar(&cmd.Options.Collection, "collection", "", "Archive collection id")
	fs.StringVar(&cmd.Options.Region, "region", "", "Country code; expands to the region's languages")
	fs.IntVar(&cmd.Options.Page, "page", 1, "Result page")
	fs.IntVar(&cmd.Options.Limit, "limit", entities.DefaultLimit, "Results per catalog")
	fs.StringVar(&cmd.Options.Sort, "sort", "", "relevance, popular, newest, oldest or title")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the merged result as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s search [options] <query>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Search every enabled catalog and print the merged result.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s search -region KE africa\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s search -sources gutendex,archive -json \"pride and prejudice\"\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.Query = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if cmd.Query == "" {
		return fmt.Errorf("a search query is required")
	}
	return nil
}

func (cmd *SearchCommand) Run() error {
	components, err := entrypoint.NewComponents(config.NewConfig())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.run(ctx, components.SearchService)
}

func (cmd *SearchCommand) run(ctx context.Context, svc *services.SearchService) error {
	var sources []entities.SourceID
	for _, part := range strings.Split(cmd.Sources, ",") {
		if part = strings.TrimSpace(part); part != "" {
			sources = append(sources, entities.SourceID(strings.ToLower(part)))
		}
	}

	resp, err := svc.Search(ctx, cmd.Query, cmd.Options, sources)
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(cmd.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(cmd.out, "Search: %q (%d books)\n\n", resp.Query, resp.Total)

	tw := tabwriter.NewWriter(cmd.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tYEAR")
	for _, book := range resp.Books {
		title := "(untitled)"
		if book.Title != nil {
			title = *book.Title
		}
		names := make([]string, 0, len(book.Authors))
		for _, a := range book.Authors {
			names = append(names, a.Name)
		}
		year := ""
		if book.Year != nil {
			year = fmt.Sprint(*book.Year)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", book.ID, truncate(title, 60), truncate(strings.Join(names, "; "), 40), year)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.out)
	for _, src := range resp.Sources {
		status := resp.PerSourceStatus[src]
		if status.Success {
			fmt.Fprintf(cmd.out, "  %-12s ok      %d results\n", src, status.Count)
		} else {
			fmt.Fprintf(cmd.out, "  %-12s failed  %s\n", src, status.Error)
		}
	}
	return nil
}

// truncate shortens s to at most n runes for table output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
