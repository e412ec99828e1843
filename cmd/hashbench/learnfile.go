package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/hailam/chesshash/internal/learn"
)

func openLearnStore(fs *flag.FlagSet, args []string, files int) (*learn.Store, []string, error) {
	dir := fs.String("learn-dir", "", "learning database directory (default: platform data dir)")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() != files {
		return nil, nil, fmt.Errorf("%s: expected %d file argument(s)", fs.Name(), files)
	}
	path := *dir
	if path == "" {
		var err error
		if path, err = learn.DefaultDir(); err != nil {
			return nil, nil, err
		}
	}
	store, err := learn.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, fs.Args(), nil
}

func exportCmd(args []string) (err error) {
	store, files, err := openLearnStore(flag.NewFlagSet("export", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Create(files[0])
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	n, err := store.Export(f)
	if err != nil {
		return err
	}
	row("exported", humanize.Comma(int64(n)))
	return nil
}

func importCmd(args []string) error {
	store, files, err := openLearnStore(flag.NewFlagSet("import", flag.ContinueOnError), args, 1)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Open(files[0])
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := store.Import(f, files[0])
	if err != nil {
		return err
	}
	row("imported", humanize.Comma(int64(n)))
	return nil
}

func sessionsCmd(args []string) error {
	store, _, err := openLearnStore(flag.NewFlagSet("sessions", flag.ContinueOnError), args, 0)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  %8s records  %s\n",
			label(s.ID), humanize.Time(s.Written), humanize.Comma(int64(s.Records)), s.Source)
	}
	count, err := store.Count()
	if err != nil {
		return err
	}
	row("positions", humanize.Comma(int64(count)))
	return nil
}
