package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/indexer"
	"github.com/rawbytedev/indexer/pkg/mmap"
	"github.com/rawbytedev/indexer/pkg/snapshot"
)

// closeInto closes the view and keeps the first error in *err.
func (v *view) closeInto(r *mmap.Region, x *indexer.BooleanRawIndexer, err *error) {
	keepFirst(err, v.closeView(r, x))
}

func keepFirst(err *error, next error) {
	if *err == nil {
		*err = next
	}
}

func newGetCommand(v *view) *cobra.Command {
	return &cobra.Command{
		Use:   "get <index>...",
		Short: "Print the boolean at the given indices.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			idx, err := parseArgs(args)
			if err != nil {
				return err
			}
			r, x, err := v.open(false)
			if err != nil {
				return err
			}
			defer v.closeInto(r, x, &err)

			var b bool
			switch len(idx) {
			case 1:
				b, err = x.Get(idx[0])
			case 2:
				b, err = x.Get2(idx[0], idx[1])
			case 3:
				b, err = x.Get3(idx[0], idx[1], idx[2])
			default:
				b, err = x.GetIndices(idx)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(v.stdout, b)
			return err
		},
	}
}

func newPutCommand(v *view) *cobra.Command {
	return &cobra.Command{
		Use:   "put <index>... <true|false>",
		Short: "Store a boolean at the given indices.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			b, err := strconv.ParseBool(args[len(args)-1])
			if err != nil {
				return err
			}
			idx, err := parseArgs(args[:len(args)-1])
			if err != nil {
				return err
			}
			r, x, err := v.open(true)
			if err != nil {
				return err
			}
			defer v.closeInto(r, x, &err)

			switch len(idx) {
			case 1:
				return x.Put(idx[0], b)
			case 2:
				return x.Put2(idx[0], idx[1], b)
			case 3:
				return x.Put3(idx[0], idx[1], idx[2], b)
			default:
				return x.PutIndices(idx, b)
			}
		},
	}
}

func newFillCommand(v *view) *cobra.Command {
	return &cobra.Command{
		Use:   "fill <true|false>",
		Short: "Store the same boolean in every element of the shape.",
		Long: `fill stores the boolean in every element the shape addresses. Bytes a
strided shape skips over are left as they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			b, err := strconv.ParseBool(args[0])
			if err != nil {
				return err
			}
			r, x, err := v.open(true)
			if err != nil {
				return err
			}
			defer v.closeInto(r, x, &err)

			var row []bool
			return eachRow(x, func(prefix []int64, contiguous bool) error {
				last := len(prefix) - 1
				if row == nil {
					row = make([]bool, x.Sizes()[last])
					for i := range row {
						row[i] = b
					}
				}
				if contiguous {
					return x.PutBulkIndices(prefix, row, 0, len(row))
				}
				for k := range row {
					prefix[last] = int64(k)
					if err := x.PutIndices(prefix, b); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newDumpCommand(v *view) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the array, one line per innermost row.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			r, x, err := v.open(false)
			if err != nil {
				return err
			}
			defer v.closeInto(r, x, &err)
			w := bufio.NewWriter(v.stdout)
			if err := dump(w, x); err != nil {
				return err
			}
			return w.Flush()
		},
	}
}

// eachRow calls fn once per innermost row of x, in row-major order, with
// the row's leading indices in prefix and prefix's last entry set to 0.
// contiguous reports whether the row's elements are adjacent in memory.
func eachRow(x *indexer.BooleanRawIndexer, fn func(prefix []int64, contiguous bool) error) error {
	sizes, strides := x.Sizes(), x.Strides()
	rank := len(sizes)
	if rank == 0 || x.Shape().Len() == 0 {
		return nil
	}
	rows := x.Shape().Len() / sizes[rank-1]
	contiguous := strides[rank-1] == 1
	prefix := make([]int64, rank)
	for n := int64(0); n < rows; n++ {
		rem := n
		for d := rank - 2; d >= 0; d-- {
			prefix[d] = rem % sizes[d]
			rem /= sizes[d]
		}
		prefix[rank-1] = 0
		if err := fn(prefix, contiguous); err != nil {
			return err
		}
	}
	return nil
}

// dump writes every innermost row as a line of 0s and 1s.
func dump(w *bufio.Writer, x *indexer.BooleanRawIndexer) error {
	var row []bool
	return eachRow(x, func(prefix []int64, contiguous bool) error {
		last := len(prefix) - 1
		if row == nil {
			row = make([]bool, x.Sizes()[last])
		}
		if contiguous {
			if err := x.GetBulkIndices(prefix, row, 0, len(row)); err != nil {
				return err
			}
		} else {
			for k := range row {
				prefix[last] = int64(k)
				b, err := x.GetIndices(prefix)
				if err != nil {
					return err
				}
				row[k] = b
			}
		}
		for _, b := range row {
			if b {
				w.WriteByte('1')
			} else {
				w.WriteByte('0')
			}
		}
		return w.WriteByte('\n')
	})
}

// Info is the description printed by the info command.
type Info struct {
	File      string  `yaml:"file"`
	Size      int64   `yaml:"size"`
	Sizes     []int64 `yaml:"sizes,flow"`
	Strides   []int64 `yaml:"strides,flow"`
	TrueCount int64   `yaml:"true_count"`
}

func newInfoCommand(v *view) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the view as YAML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			r, x, err := v.open(false)
			if err != nil {
				return err
			}
			defer v.closeInto(r, x, &err)

			all := make([]bool, x.Size())
			if err := x.GetBulk(0, all, 0, len(all)); err != nil {
				return err
			}
			info := Info{File: v.File, Size: x.Size(), Sizes: x.Sizes(), Strides: x.Strides()}
			for _, b := range all {
				if b {
					info.TrueCount++
				}
			}
			out, err := yaml.Marshal(info)
			if err != nil {
				return err
			}
			_, err = v.stdout.Write(out)
			return err
		},
	}
}

func newSnapshotCommand(v *view) *cobra.Command {
	var out string
	var compress bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write the view's shape and contents to a snapshot file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if out == "" {
				return fmt.Errorf("no output given (use --out)")
			}
			r, x, err := v.open(false)
			if err != nil {
				return err
			}
			defer v.closeInto(r, x, &err)
			frame, err := snapshot.Encode(x, snapshot.Options{Zstd: compress})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, frame, 0o644); err != nil {
				return err
			}
			v.logger.Printf("wrote %d byte snapshot of %d elements to %s", len(frame), x.Size(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot file to write.")
	cmd.Flags().BoolVar(&compress, "zstd", false, "Compress the payload with zstd.")
	return cmd
}

func newRestoreCommand(v *view) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the file contents with a snapshot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return fmt.Errorf("no input given (use --in)")
			}
			if v.File == "" {
				return fmt.Errorf("no file given (use --file or %s_FILE)", envPrefix)
			}
			frame, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			s, err := snapshot.Decode(frame)
			if err != nil {
				return err
			}
			src, err := snapshot.Restore[bool](s)
			if err != nil {
				return err
			}
			all := make([]bool, src.Size())
			if err := src.GetBulk(0, all, 0, len(all)); err != nil {
				return err
			}
			if err := v.replace(all); err != nil {
				return err
			}
			v.logger.Printf("restored %d elements (%s) into %s", len(all), s.Shape, v.File)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "Snapshot file to read.")
	return cmd
}

// replace writes all to a temporary file next to v.File and renames it
// over v.File, leaving the original untouched on failure.
func (v *view) replace(all []bool) (err error) {
	f, err := os.CreateTemp(filepath.Dir(v.File), ".boolview-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()
	if err := f.Close(); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(v.File); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return err
	}

	r, err := mmap.Open(tmp, int64(len(all)), 1, true)
	if err != nil {
		return err
	}
	x, err := mmap.NewIndexer[bool](r, nil, nil)
	if err != nil {
		r.Close()
		return err
	}
	if err := x.PutBulk(0, all, 0, len(all)); err != nil {
		v.closeView(r, x)
		return err
	}
	if err := v.closeView(r, x); err != nil {
		return err
	}
	return os.Rename(tmp, v.File)
}
