package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hupe1980/ragfile"
	"github.com/hupe1980/ragfile/internal/hash"
)

func runInspect(ctx context.Context, e *env, args []string) error {
	fs := e.newFlagSet("inspect", "-file <path> [-n bytes]")
	file := fs.String("file", "", "container path")
	n := fs.Int("n", 256, "hexdump bytes (0 for the whole file, -1 for none)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errors.New("inspect needs -file")
	}

	r, err := ragfile.Open(*file, e.opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	sections, err := r.Sections(ctx)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	h := r.Header()
	fmt.Fprintf(e.stdout, "File:       %s\n", *file)
	fmt.Fprintf(e.stdout, "Size:       %d bytes\n", r.Size())
	fmt.Fprintf(e.stdout, "Version:    %s\n", h.Version)
	fmt.Fprintf(e.stdout, "Byte order: %s\n", h.ByteOrder())
	fmt.Fprintf(e.stdout, "CRC32C:     %s\n\n", hash.CRC32CHex(data))

	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tSTART\tEND\tBYTES\tALIGNMENT\tPRECISION")
	for _, s := range sections {
		precision := "-"
		if s.Precision > 0 {
			precision = fmt.Sprintf("%d", s.Precision)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", s.Name, s.Start, s.End, s.End-s.Start, s.Alignment, precision)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if *n >= 0 {
		dump, err := r.Hexdump(ctx, *n)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "\n%s", dump)
	}
	return nil
}
