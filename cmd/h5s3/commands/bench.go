package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marmos91/h5s3/internal/bytesize"
	"github.com/marmos91/h5s3/internal/cli/output"
	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/pkg/metrics"
	"github.com/marmos91/h5s3/pkg/pagecache"
)

type benchPhase struct {
	Name     string        `json:"phase" yaml:"phase"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

func (p benchPhase) throughput() float64 {
	if p.Duration <= 0 {
		return 0
	}
	return float64(p.Bytes) / p.Duration.Seconds()
}

type benchResult struct {
	URI       string          `json:"uri" yaml:"uri"`
	PageSize  int64           `json:"page_size" yaml:"page_size"`
	Phases    []benchPhase    `json:"phases" yaml:"phases"`
	PageCache pagecache.Stats `json:"page_cache" yaml:"page_cache"`
}

func (r benchResult) Headers() []string {
	return []string{"Phase", "Bytes", "Duration", "Throughput"}
}

func (r benchResult) Rows() [][]string {
	rows := make([][]string, 0, len(r.Phases))
	for _, p := range r.Phases {
		rows = append(rows, []string{
			p.Name,
			bytesize.ByteSize(p.Bytes).Human(),
			p.Duration.Round(time.Millisecond).String(),
			bytesize.ByteSize(p.throughput()).Human() + "/s",
		})
	}
	return rows
}

func newBenchCmd(g *globals) *cobra.Command {
	var (
		size        = 64 * bytesize.MiB
		block       = bytesize.MiB
		metricsAddr string
		keep        bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "bench PREFIX",
		Short: "Measure write and read throughput",
		Long: `Write --size bytes in --block sized writes to a fresh object under
PREFIX, flush and close it, then reopen it and read it back sequentially.

The object is named PREFIX/<uuid>. Unless --keep is set it is truncated to
zero bytes afterwards.

Examples:
  h5s3 bench s3://bucket/bench
  h5s3 bench --size 1Gi --page-size 8Mi --metrics-addr :9090 s3://bucket/bench`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if block == 0 {
				return fmt.Errorf("--block must be positive")
			}

			s, err := g.start(cmd, metricsAddr != "")
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()

			ctx := cmd.Context()
			if metricsAddr != "" {
				stop, err := serveMetrics(ctx, metricsAddr)
				if err != nil {
					return err
				}
				defer stop()
			}

			uri := strings.TrimSuffix(args[0], "/") + "/" + uuid.NewString()
			res, err := runBench(ctx, s, uri, size.Int64(), block.Int64(), keep)
			if err != nil {
				return err
			}
			return output.NewPrinter(cmd.OutOrStdout(), f).Print(res)
		},
	}

	cmd.Flags().Var(byteSizeFlag{&size}, "size", "bytes to write and read")
	cmd.Flags().Var(byteSizeFlag{&block}, "block", "bytes per write and read call")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the object's contents")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format (table|json|yaml)")
	return cmd
}

func runBench(ctx context.Context, s *session, uri string, size, block int64, keep bool) (res benchResult, err error) {
	res.URI = uri
	buf := make([]byte, block)
	for i := range buf {
		buf[i] = byte(i * 7)
	}

	h, err := s.open(ctx, uri)
	if err != nil {
		return res, err
	}
	res.PageSize = h.Info().PageSize

	start := time.Now()
	for off := int64(0); off < size; off += block {
		n := min(block, size-off)
		if _, err := h.WriteAt(buf[:n], off); err != nil {
			closeHandle(h, &err)
			return res, err
		}
	}
	res.Phases = append(res.Phases, benchPhase{Name: "write", Bytes: size, Duration: time.Since(start)})

	start = time.Now()
	if err := h.Close(); err != nil {
		_, _ = h.Abandon()
		return res, err
	}
	res.Phases = append(res.Phases, benchPhase{Name: "flush", Bytes: size, Duration: time.Since(start)})

	h, err = s.open(ctx, uri)
	if err != nil {
		return res, err
	}
	defer closeHandle(h, &err)

	start = time.Now()
	var read int64
	for read < size {
		n, rerr := h.ReadAt(buf, read)
		read += int64(n)
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return res, rerr
		}
	}
	res.Phases = append(res.Phases, benchPhase{Name: "read", Bytes: read, Duration: time.Since(start)})
	res.PageCache = h.Info().PageCache
	if read != size {
		return res, fmt.Errorf("read back %d bytes, wrote %d", read, size)
	}

	if !keep {
		err = h.Truncate(0)
	}
	return res, err
}

// serveMetrics exposes the metrics registry until the returned stop
// function is called.
func serveMetrics(ctx context.Context, addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("h5s3: metrics server failed", logger.KeyError, err.Error())
		}
	}()
	logger.Info("h5s3: serving metrics", "addr", ln.Addr().String())

	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}, nil
}

