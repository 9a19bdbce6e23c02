package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/ronny/linkdb"
	"github.com/ronny/linkdb/models"
)

func (a *app) createCommand() *ffcli.Command {
	fs := flag.NewFlagSet("linkdb create", flag.ContinueOnError)
	var (
		uri         = fs.String("uri", "", "the URI to store the link under (required)")
		id          = fs.String("id", "", "the link id, unique within the database (required)")
		description = fs.String("description", "", "the link description, a period is appended when missing (required)")
		keywords    = fs.String("keywords", "", "comma separated keywords (optional)")
		shortURL    = fs.String("short-url", "", "the short URL of the link (optional)")
	)

	return &ffcli.Command{
		Name:       "create",
		ShortUsage: "linkdb create -uri <uri> -id <id> -description <description> [-keywords a,b] [-short-url <url>]",
		ShortHelp:  "Add a link to the database.",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}

			opts := &linkdb.CreateOptions{
				URI:         *uri,
				ID:          *id,
				Description: *description,
				Keywords:    splitKeywords(*keywords),
				ShortURL:    *shortURL,
			}
			if err := a.db.Create(ctx, opts); err != nil {
				return err
			}

			link, err := a.db.Get(ctx, "", opts.URI)
			if err != nil {
				return err
			}
			return a.printLink(opts.URI, link)
		},
	}
}

func (a *app) getCommand() *ffcli.Command {
	fs := flag.NewFlagSet("linkdb get", flag.ContinueOnError)
	var (
		uri = fs.String("uri", "", "the URI of the link")
		id  = fs.String("id", "", "the id of the link")
	)

	return &ffcli.Command{
		Name:       "get",
		ShortUsage: "linkdb get (-uri <uri> | -id <id>)",
		ShortHelp:  "Print a link from the database as JSON.",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			var (
				linkURI = *uri
				link    *models.Link
				err     error
			)
			switch {
			case *uri != "" && *id != "":
				return errors.New("use either -uri or -id, not both")
			case *uri != "":
				link, err = a.db.Get(ctx, "", *uri)
			case *id != "":
				linkURI, link, err = a.db.GetByID(ctx, "", *id)
			default:
				return errors.New("one of -uri or -id is required")
			}
			if err != nil {
				return err
			}
			if link == nil {
				return fmt.Errorf("link not found")
			}
			return a.printLink(linkURI, link)
		},
	}
}

func (a *app) printLink(uri string, link *models.Link) error {
	b, err := json.MarshalIndent(models.Database{uri: link}, "", "\t")
	if err != nil {
		return fmt.Errorf("json.MarshalIndent: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func splitKeywords(s string) []string {
	keywords := make([]string, 0)
	for _, keyword := range strings.Split(s, ",") {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}
