// Command hilite annotates text with the categories of a highlight
// configuration. It reads files, directory trees or stdin and prints one
// line per match.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dl/hilite/internal/cli"
	"github.com/dl/hilite/internal/input"
	"github.com/dl/hilite/internal/matcher"
)

func main() {
	os.Exit(execute(append(cli.LoadFlagArgs(), os.Args[1:]...)))
}

func execute(args []string) int {
	var (
		cfg   cli.Config
		color string
		code  = cli.ExitError
	)

	cmd := &cobra.Command{
		Use:   "hilite [flags] [path...]",
		Short: "Annotate text with the categories of a highlight configuration",
		Long: `hilite finds the words of each enabled category in the given files
(stdin when none) and prints path:line:column:category:text for every match.
Matches never overlap; ignore-list entries suppress the matches they touch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, paths []string) error {
			mode, err := cli.ParseColorMode(color)
			if err != nil {
				return err
			}
			cfg.Color = mode
			cfg.Paths = paths
			code = cli.Run(cfg)
			return nil
		},
	}
	cmd.SetArgs(args)
	bindFlags(cmd.Flags(), &cfg, &color)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hilite: %v\n", err)
		return cli.ExitError
	}
	return code
}

func bindFlags(fs *pflag.FlagSet, cfg *cli.Config, color *string) {
	fs.SortFlags = false
	fs.StringVar(&cfg.ConfigPath, "config", "", "highlight configuration file (default $HILITE_CONFIG or ~/.config/hilite/config.yaml)")
	fs.StringVar(&cfg.Engine, "engine", "", "search engine: re2 or pcre (default $HILITE_ENGINE or re2)")
	fs.IntVar(&cfg.ChunkSize, "chunk-size", 0, fmt.Sprintf("patterns per compiled expression (default %d)", matcher.DefaultChunkSize))
	fs.StringArrayVarP(&cfg.Words, "word", "w", nil, "extra word for the trailing \"cli\" category (repeatable)")
	fs.StringArrayVar(&cfg.Ignore, "ignore", nil, "extra ignore-list entry (repeatable)")
	fs.BoolVarP(&cfg.Recursive, "recursive", "r", false, "walk directories")
	fs.BoolVar(&cfg.Hidden, "hidden", false, "include hidden files and directories")
	fs.BoolVar(&cfg.NoIgnore, "no-ignore", false, "do not read .gitignore and .hiliteignore files")
	fs.StringArrayVar(&cfg.Exclude, "exclude", nil, "gitignore-style glob to skip while walking (repeatable)")
	fs.IntVarP(&cfg.Workers, "workers", "j", 0, "parallel workers (default 2 x CPUs)")
	fs.Int64Var(&cfg.MmapThreshold, "mmap-threshold", input.DefaultMmapThreshold, "memory-map files of at least this many bytes")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "print JSON Lines")
	fs.BoolVarP(&cfg.CountOnly, "count", "c", false, "print the number of matches per input")
	fs.StringVar(color, "color", "auto", "color output: auto, always or never")
	fs.BoolVar(&cfg.Watch, "watch", false, "follow the given files and reload the configuration when it changes")
	fs.BoolVar(&cfg.Stream, "stream", false, "annotate stdin line by line as it arrives")
	fs.BoolVar(&cfg.Metrics, "metrics", false, "print Prometheus metrics to stderr on exit")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log debug messages")
}
