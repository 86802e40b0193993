package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/identifier"
)

func main() {
	log := logger.New()

	var opts struct {
		Roots     []string `short:"r" long:"root" description:"A library root the paths are relative to (repeatable)"`
		Subtitles bool     `short:"s" long:"subtitles" description:"Identify the paths as external subtitles"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) == 0 {
		fmt.Println("go run ./cmd/scripts/debug/identify [-r /library/root] <path> [path...]")
		os.Exit(1)
	}

	id := identifier.NewDefault()

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)

	if opts.Subtitles {
		tw.AppendHeader(table.Row{"Path", "Episode path", "Language", "Codec", "Default", "Forced"})
		for _, path := range args {
			cand, err := id.IdentifyTrack(path)
			if err != nil {
				tw.AppendRow(table.Row{path, describe(err)})
				continue
			}
			tw.AppendRow(table.Row{path, cand.EpisodePath, cand.Language, cand.Codec, cand.IsDefault, cand.IsForced})
		}
		tw.Render()
		return
	}

	tw.AppendHeader(table.Row{"Path", "Title", "Year", "Season", "Episode", "Absolute", "Collection", "Kind"})
	for _, path := range args {
		cand, err := id.Identify(path, opts.Roots)
		if err != nil {
			tw.AppendRow(table.Row{path, describe(err)})
			continue
		}
		guess := cand.Guess()
		tw.AppendRow(table.Row{
			path,
			cand.ShowTitle,
			number(cand.StartYear),
			number(cand.SeasonNumber),
			number(cand.EpisodeNumber),
			number(cand.AbsoluteNumber),
			text(cand.CollectionName),
			guess.Kind,
		})
	}
	tw.Render()
}

func describe(err error) string {
	if errors.Is(err, identifier.ErrUnidentifiable) {
		return "unidentifiable"
	}
	return err.Error()
}

func number(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
