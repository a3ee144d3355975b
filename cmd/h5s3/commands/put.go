package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/h5s3/internal/bytesize"
	"github.com/marmos91/h5s3/internal/logger"
)

func newPutCmd(g *globals) *cobra.Command {
	var (
		offset   bytesize.ByteSize
		truncate bool
	)

	cmd := &cobra.Command{
		Use:   "put URI [FILE]",
		Short: "Write stdin or a file into an object",
		Long: `Write the contents of FILE (or stdin) into an object at --offset and
flush it. With --truncate the object ends where the written data ends.

Examples:
  h5s3 put s3://bucket/data.h5 local.h5
  echo -n patch | h5s3 put --offset 1Ki file://scratch/out.h5`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			in := cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

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
			n, err := io.Copy(io.NewOffsetWriter(h, off), in)
			if err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			if truncate {
				if err := h.Truncate(off + n); err != nil {
					return err
				}
			}
			if err := h.Sync(); err != nil {
				return err
			}

			logger.Info("h5s3: put complete",
				logger.KeyURI, args[0],
				logger.KeyOffset, off,
				logger.KeyBytesWritten, n,
				logger.KeyEOF, h.Size(),
			)
			return nil
		},
	}

	cmd.Flags().Var(byteSizeFlag{&offset}, "offset", "byte offset to write at")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "set the object size to the end of the written data")
	return cmd
}
