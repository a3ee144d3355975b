package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/h5s3/internal/bytesize"
)

func newTruncateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "truncate URI SIZE",
		Short: "Set an object's logical size",
		Long: `Shrink or grow an object. Bytes exposed by growing read as zeros.

Examples:
  h5s3 truncate s3://bucket/data.h5 0
  h5s3 truncate file://scratch/out.h5 64Mi`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			size, err := bytesize.ParseByteSize(args[1])
			if err != nil {
				return err
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

			return h.Truncate(size.Int64())
		},
	}
}
