package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mrlokans/bookbridge/internal/config"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/entrypoint"
	"github.com/mrlokans/bookbridge/internal/services"
)

// DownloadCommand fetches one book file to disk.
type DownloadCommand struct {
	Source    string
	ID        string
	Format    string
	OutputDir string
	Force     bool

	out io.Writer
}

func NewDownloadCommand() *DownloadCommand {
	return &DownloadCommand{out: os.Stdout}
}

func (cmd *DownloadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	fs.StringVar(&cmd.Source, "source", string(entities.SourceGutendex), "Catalog the id belongs to (gutendex or archive)")
	fs.StringVar(&cmd.ID, "id", "", "Book id, plain or composite (e.g. 1342 or gutendex:1342) (required)")
	fs.StringVar(&cmd.Format, "format", string(entities.FormatEPUB), "epub, epub-noimages, kindle, mobi, txt or pdf")
	fs.StringVar(&cmd.OutputDir, "output", ".", "Directory to write the file to")
	fs.BoolVar(&cmd.Force, "force", false, "Overwrite an existing file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s download -id <id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Download a book file, trying every known mirror location in order.\n")
		fmt.Fprintf(os.Stderr, "PDF is generated from the book's EPUB.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s download -id 1342\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s download -source archive -id prideprejudice00aust -format pdf -output ~/Books\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ID == "" {
		return fmt.Errorf("required flag -id not provided")
	}
	return nil
}

func (cmd *DownloadCommand) Run() error {
	components, err := entrypoint.NewComponents(config.NewConfig())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.run(ctx, components.DownloadService)
}

func (cmd *DownloadCommand) run(ctx context.Context, svc *services.DownloadService) error {
	source, err := entities.ParseSourceID(cmd.Source)
	if err != nil {
		return err
	}

	result, err := svc.Download(ctx, source, cmd.ID, cmd.Format)
	if err != nil {
		return err
	}
	defer result.Body.Close()

	if err := os.MkdirAll(cmd.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(cmd.OutputDir, result.Filename)

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if cmd.Force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	written, err := io.Copy(f, result.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.out, "Saved %s (%d bytes, from %s)\n", path, written, result.Source)
	if result.Truncated {
		fmt.Fprintln(cmd.out, "Note: the PDF holds only the first part of the book.")
	}
	return nil
}
