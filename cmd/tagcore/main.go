package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kestrel-audio/tagcore"
)

var errNoPaths = fmt.Errorf("at least one file path is required")

func printResult(path string, info tagcore.StreamInfo, tags *tagcore.TagCollection, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, err)
		return
	}
	fmt.Printf("%s\n", path)
	fmt.Printf("  format=%s sample_rate=%d channels=%d bits_per_sample=%d codec=%q length=%.2fs\n",
		info.Format, info.SampleRate, info.Channels, info.BitsPerSample, info.Codec, info.LengthSeconds)
	if tags == nil {
		return
	}
	for _, key := range tags.Keys() {
		for _, v := range tags.GetAll(key) {
			fmt.Printf("  %s=%v\n", key, v.Text)
		}
	}
}

func main() {
	showTags := flag.Bool("tags", false, "also print the tag collection for each file")
	clear := flag.Bool("clear-cache", false, "clear the result cache before reading")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, errNoPaths)
		os.Exit(1)
	}

	if *clear {
		tagcore.ClearCache()
	}

	if len(paths) == 1 {
		info, tags, err := tagcore.Read(paths[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !*showTags {
			tags = nil
		}
		printResult(paths[0], info, tags, nil)
		return
	}

	results := tagcore.BatchRead(context.Background(), paths)
	failed := false
	for _, r := range results {
		tags := r.Collection
		if !*showTags {
			tags = nil
		}
		printResult(r.Path, r.Info, tags, r.Err)
		if r.Err != nil {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
