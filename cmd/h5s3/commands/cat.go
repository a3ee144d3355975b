package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/marmos91/h5s3/internal/bytesize"
)

func newCatCmd(g *globals) *cobra.Command {
	var (
		offset bytesize.ByteSize
		length bytesize.ByteSize
	)

	cmd := &cobra.Command{
		Use:   "cat URI",
		Short: "Write an object's bytes to stdout",
		Long: `Read a byte range of an object and write it to stdout.

Without --length the range extends to the logical end of the object.

Examples:
  h5s3 cat s3://bucket/data.h5 > data.h5
  h5s3 cat --offset 512 --length 8Ki file://scratch/out.h5 | xxd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := g.start(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			h, err := s.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer closeHandle(h, &err)

			off := offset.Int64()
			n := h.Size() - off
			if cmd.Flags().Changed("length") {
				n = min(n, length.Int64())
			}
			if n <= 0 {
				return nil
			}

			w := bufio.NewWriterSize(cmd.OutOrStdout(), 1<<20)
			if _, err := io.Copy(w, io.NewSectionReader(h, off, n)); err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Var(byteSizeFlag{&offset}, "offset", "first byte to read")
	cmd.Flags().Var(byteSizeFlag{&length}, "length", "number of bytes to read (default: to the end)")
	return cmd
}
