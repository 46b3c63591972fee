// Package cmd implements the boolview command line: it maps a file of
// one-byte booleans and reads, writes, dumps or snapshots it through a
// strided indexer.
package cmd

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rawbytedev/indexer"
	"github.com/rawbytedev/indexer/pkg/mmap"
)

const envPrefix = "BOOLVIEW"

// view holds the settings shared by every subcommand.
type view struct {
	File    string
	Sizes   string
	Strides string

	stdout io.Writer
	logger *log.Logger
}

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	v := &view{stdout: stdout, logger: log.New(stderr, "boolview: ", 0)}
	rc := &cobra.Command{
		Use:   "boolview",
		Short: "Inspect and edit a file of booleans as an n-dimensional array.",
		Long: `boolview maps a file holding one byte per boolean and views it through a
strided indexer. Sizes and strides are comma separated; without sizes the
whole file is a single dimension.

Every flag can also be set through BOOLVIEW_<FLAG> or a YAML config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setAllConfig(viper.New(), cmd.Flags())
		},
	}
	rc.PersistentFlags().StringVarP(&v.File, "file", "f", "", "File holding the booleans.")
	rc.PersistentFlags().StringVar(&v.Sizes, "sizes", "", "Comma separated dimension sizes, e.g. 2,3.")
	rc.PersistentFlags().StringVar(&v.Strides, "strides", "", "Comma separated element strides; row-major when empty.")
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")

	rc.AddCommand(newGetCommand(v))
	rc.AddCommand(newPutCommand(v))
	rc.AddCommand(newFillCommand(v))
	rc.AddCommand(newDumpCommand(v))
	rc.AddCommand(newInfoCommand(v))
	rc.AddCommand(newSnapshotCommand(v))
	rc.AddCommand(newRestoreCommand(v))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig applies, in priority order, command line flags, BOOLVIEW_*
// environment variables and the config file to every flag in flags.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}

func parseInts(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %v", p, err)
		}
		out[i] = n
	}
	return out, nil
}

func parseArgs(args []string) ([]int64, error) {
	return parseInts(strings.Join(args, ","))
}

// open maps the file and builds the indexer. Writable views grow the file
// to hold the furthest element the shape reaches.
func (v *view) open(writable bool) (*mmap.Region, *indexer.BooleanRawIndexer, error) {
	if v.File == "" {
		return nil, nil, fmt.Errorf("no file given (use --file or %s_FILE)", envPrefix)
	}
	sizes, err := parseInts(v.Sizes)
	if err != nil {
		return nil, nil, fmt.Errorf("sizes: %v", err)
	}
	strides, err := parseInts(v.Strides)
	if err != nil {
		return nil, nil, fmt.Errorf("strides: %v", err)
	}
	var want int64
	if writable && len(sizes) > 0 {
		shape, err := indexer.NewShape(sizes, strides)
		if err != nil {
			return nil, nil, err
		}
		want = span(shape)
	}
	r, err := mmap.Open(v.File, want, 1, writable)
	if err != nil {
		return nil, nil, err
	}
	x, err := mmap.NewIndexer[bool](r, sizes, strides)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	return r, x, nil
}

// span returns one past the largest flat index shape reaches from 0.
func span(shape indexer.Shape) int64 {
	if shape.Len() == 0 {
		return 0
	}
	end := int64(1)
	for d, n := range shape.Sizes() {
		if step := (n - 1) * shape.Strides()[d]; step > 0 {
			end += step
		}
	}
	return end
}

// closeView releases the indexer before unmapping.
func (v *view) closeView(r *mmap.Region, x *indexer.BooleanRawIndexer) error {
	x.Release()
	if err := r.Sync(); err != nil {
		r.Close()
		return err
	}
	return r.Close()
}
