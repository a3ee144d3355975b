package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/h5s3/internal/bytesize"
	"github.com/marmos91/h5s3/internal/cli/output"
	"github.com/marmos91/h5s3/pkg/driver"
)

// statView renders driver.Info as a two-column table.
type statView struct{ driver.Info }

func (v statView) Headers() []string { return []string{"Field", "Value"} }

func (v statView) Rows() [][]string {
	return [][]string{
		{"URI", v.URI},
		{"Backend", v.Backend},
		{"Key", v.Key},
		{"Size", strconv.FormatInt(v.EOF, 10) + " (" + bytesize.ByteSize(v.EOF).Human() + ")"},
		{"Page size", bytesize.ByteSize(v.PageSize).String()},
		{"Pages", strconv.FormatInt((v.EOF+v.PageSize-1)/v.PageSize, 10)},
		{"Cache capacity", strconv.Itoa(v.PageCache.Capacity) + " pages"},
	}
}

func newStatCmd(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stat URI",
		Short: "Show an object's size and page layout",
		Long: `Open an object and print its logical size, page size and page cache
configuration.

Examples:
  h5s3 stat s3://bucket/data.h5
  h5s3 stat -o json badger://db/data.h5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			f, err := output.ParseFormat(format)
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

			info := h.Info()
			p := output.NewPrinter(cmd.OutOrStdout(), f)
			if f == output.FormatTable {
				return p.Print(statView{Info: info})
			}
			return p.Print(info)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format (table|json|yaml)")
	return cmd
}
