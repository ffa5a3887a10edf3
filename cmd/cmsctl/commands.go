package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"cmspages/app/internal/app/bootstrap"
	domainpages "cmspages/app/internal/domain/pages"
)

type commandEnv struct {
	app    bootstrap.Result
	stdout io.Writer
	logger *logrus.Entry
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env commandEnv, args []string) error
}

var commands = []command{
	{name: "list", usage: "list pages with their current version", run: runList},
	{name: "create-page", usage: "<slug>  create an empty page", run: runCreatePage},
	{name: "add-version", usage: "[-status s] [-lang l -title t -content c|-content-file f] [-comment c] <page-id>", run: runAddVersion},
	{name: "archive", usage: "<page-id>  append an archived version", run: runArchive},
	{name: "export", usage: "<slug-prefix> <file>  write pages with full history as JSON", run: runExport},
	{name: "import", usage: "<file>  replace or create pages from an export", run: runImport},
	{name: "purge", usage: "-yes <slug-prefix>  permanently delete pages", run: runPurge},
}

func lookupCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(out)
	return flags
}

func runList(ctx context.Context, env commandEnv, args []string) error {
	if len(args) != 0 {
		return eris.New("list takes no arguments")
	}

	pages, err := env.app.PageService.GetAllPages(ctx)
	if err != nil {
		return eris.Wrap(err, "listing pages")
	}

	writer := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSLUG\tVERSION\tSTATUS\tUPDATED")
	for _, page := range pages {
		number, status := "-", "-"
		if page.CurrentVersion != nil {
			number = strconv.Itoa(page.CurrentVersion.Number)
			status = page.CurrentVersion.Status.String()
		}
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n", page.ID, page.Slug, number, status, page.UpdatedAt.Format(time.RFC3339))
	}
	return writer.Flush()
}

func runCreatePage(ctx context.Context, env commandEnv, args []string) error {
	if len(args) != 1 {
		return eris.New("usage: create-page <slug>")
	}

	page, err := env.app.PageService.CreatePage(ctx, args[0])
	if err != nil {
		return eris.Wrap(err, "creating page")
	}

	fmt.Fprintf(env.stdout, "created page %d (%s)\n", page.ID, page.Slug)
	return nil
}

func runAddVersion(ctx context.Context, env commandEnv, args []string) error {
	flags := newFlagSet("add-version", env.stdout)
	status := flags.String("status", string(domainpages.StatusDraft), "draft, published or archived")
	comment := flags.String("comment", "", "version comment")
	lang := flags.String("lang", "", "translation language code")
	title := flags.String("title", "", "translation title")
	content := flags.String("content", "", "translation content")
	contentFile := flags.String("content-file", "", "read translation content from a file")
	if err := flags.Parse(args); err != nil {
		return eris.Wrap(err, "parsing flags")
	}
	if flags.NArg() != 1 {
		return eris.New("usage: add-version [flags] <page-id>")
	}

	pageID, err := parsePageID(flags.Arg(0))
	if err != nil {
		return err
	}

	input := domainpages.CreateVersionInput{Status: *status, Comment: *comment}
	if strings.TrimSpace(*lang) != "" {
		body := *content
		if *contentFile != "" {
			raw, err := os.ReadFile(*contentFile)
			if err != nil {
				return eris.Wrapf(err, "reading content file %s", *contentFile)
			}
			body = string(raw)
		}
		input.Translations = []domainpages.TranslationInput{{Language: *lang, Title: *title, Content: body}}
	}

	version, err := env.app.PageService.CreateVersion(ctx, pageID, input)
	if err != nil {
		return eris.Wrap(err, "creating version")
	}

	fmt.Fprintf(env.stdout, "page %d: version %d (%s)\n", pageID, version.Number, version.Status)
	return nil
}

func runArchive(ctx context.Context, env commandEnv, args []string) error {
	if len(args) != 1 {
		return eris.New("usage: archive <page-id>")
	}

	pageID, err := parsePageID(args[0])
	if err != nil {
		return err
	}

	if err := env.app.PageService.DeletePage(ctx, pageID, ""); err != nil {
		return eris.Wrap(err, "archiving page")
	}

	fmt.Fprintf(env.stdout, "archived page %d\n", pageID)
	return nil
}

func runExport(ctx context.Context, env commandEnv, args []string) error {
	if len(args) != 2 {
		return eris.New("usage: export <slug-prefix> <file>")
	}

	count, err := env.app.Exporter.WriteFile(ctx, args[0], args[1])
	if err != nil {
		return eris.Wrap(err, "exporting pages")
	}

	fmt.Fprintf(env.stdout, "exported %d pages to %s\n", count, args[1])
	return nil
}

func runImport(ctx context.Context, env commandEnv, args []string) error {
	if len(args) != 1 {
		return eris.New("usage: import <file>")
	}

	report, err := env.app.Importer.ImportFile(ctx, args[0])
	if err != nil {
		return eris.Wrap(err, "importing pages")
	}

	fmt.Fprintf(env.stdout, "imported %d pages (%d created, %d replaced)\n", report.Imported(), report.Created, report.Replaced)
	for _, failure := range report.Failures {
		fmt.Fprintf(env.stdout, "  failed %s: %s\n", failure.Slug, failure.Error)
	}
	if len(report.Failures) > 0 {
		return eris.Errorf("%d pages failed to import", len(report.Failures))
	}
	return nil
}

func runPurge(ctx context.Context, env commandEnv, args []string) error {
	flags := newFlagSet("purge", env.stdout)
	confirmed := flags.Bool("yes", false, "confirm permanent deletion")
	if err := flags.Parse(args); err != nil {
		return eris.Wrap(err, "parsing flags")
	}
	if flags.NArg() != 1 {
		return eris.New("usage: purge -yes <slug-prefix>")
	}
	if !*confirmed {
		return eris.New("purge deletes history permanently; pass -yes to confirm")
	}

	deleted, err := env.app.Purger.Purge(ctx, flags.Arg(0))
	if err != nil {
		return eris.Wrap(err, "purging pages")
	}

	fmt.Fprintf(env.stdout, "purged %d pages\n", deleted)
	return nil
}

func parsePageID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, eris.Errorf("invalid page id: %q", raw)
	}
	return id, nil
}
