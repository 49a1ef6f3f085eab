package cli

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/qrv0/sparrow/internal/matrix"
	"github.com/qrv0/sparrow/internal/sparse"
	"github.com/qrv0/sparrow/internal/workers"
)

// GemmiResult is the output of the gemmi command.
type GemmiResult struct {
	M          int         `json:"m"`
	N          int         `json:"n"`
	K          int         `json:"k"`
	DType      string      `json:"dtype"`
	Jobs       int         `json:"jobs"`
	C          [][]float64 `json:"c"`
	MaxAbsDiff float64     `json:"max_abs_diff"`
	Digest     string      `json:"xxh3"`
}

type gemmiFlags struct {
	a, c        string
	alpha, beta float64
	jobs        int
}

// NewGemmiCommand creates the gemmi command.
func NewGemmiCommand(rootOpts *RootOptions) *cobra.Command {
	f := &gemmiFlags{}
	cmd := &cobra.Command{
		Use:   "gemmi <B.{json,spmx}> --a A.json",
		Short: "Compute C = alpha*A*B + beta*C for dense A and sparse B",
		Long: `Multiply a dense matrix A (m x k) by a sparse matrix B (k x n).

Dense files are JSON {"rows","cols","data"} in row-major order. C starts
at zero unless --c is given. With --jobs N the product runs N times
concurrently on pooled handles and every result must agree. The result
is checked against a dense reference product.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dtype, err := dtypeFor(cmd, args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read input", err)
			}
			switch dtype {
			case "float32":
				return runGemmi[float32](rootOpts, args[0], f, cmd)
			case "float64":
				return runGemmi[float64](rootOpts, args[0], f, cmd)
			}
			return unsupportedDType(dtype)
		},
	}
	cmd.Flags().StringVar(&f.a, "a", "", "dense A (JSON)")
	cmd.Flags().StringVar(&f.c, "c", "", "dense initial C (JSON)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 1, "alpha")
	cmd.Flags().Float64Var(&f.beta, "beta", 0, "beta")
	cmd.Flags().IntVar(&f.jobs, "jobs", 1, "concurrent runs on pooled handles")
	cmd.Flags().String("dtype", "float64", "element type (float32|float64)")
	_ = cmd.MarkFlagRequired("a")
	return cmd
}

func runGemmi[T sparse.Float](opts *RootOptions, path string, f *gemmiFlags, cmd *cobra.Command) error {
	coo, err := loadCOO[T](path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read B", err)
	}
	b := coo.ToCSC()
	m, k, a, err := loadDense[T](f.a)
	if err != nil {
		return WrapExitError(ExitCommandError, "read A", err)
	}
	if k != b.Rows {
		return NewExitError(ExitCommandError, fmt.Sprintf("A is %dx%d but B has %d rows", m, k, b.Rows))
	}
	n := b.Cols
	c0 := make([]T, m*n)
	if f.c != "" {
		cm, cn, c, err := loadDense[T](f.c)
		if err != nil {
			return WrapExitError(ExitCommandError, "read C", err)
		}
		if cm != m || cn != n {
			return NewExitError(ExitCommandError, fmt.Sprintf("C is %dx%d, want %dx%d", cm, cn, m, n))
		}
		c0 = c
	}
	if f.jobs <= 0 {
		return NewExitError(ExitCommandError, "--jobs must be positive")
	}

	rt, backend, sp, err := opts.openRuntime()
	if err != nil {
		return err
	}
	pool, err := workers.NewPool(rt, min(f.jobs, opts.config().PoolSize))
	if err != nil {
		return WrapExitError(ExitCommandError, "create handle pool", err)
	}
	defer pool.Close()

	alpha, beta := T(f.alpha), T(f.beta)
	results := make([][]T, f.jobs)
	jobs := make([]func(context.Context, workers.Worker) error, f.jobs)
	for i := range jobs {
		i := i
		jobs[i] = func(ctx context.Context, w workers.Worker) error {
			c := append([]T(nil), c0...)
			if err := matrix.MulDense(sp, w.Handle, alpha, a, m, max(m, 1), b, beta, c, max(m, 1)); err != nil {
				return err
			}
			results[i] = c
			return nil
		}
	}
	if err := pool.Run(cmd.Context(), jobs); err != nil {
		return WrapExitError(ExitCommandError, "gemmi", err)
	}
	opts.log().Debug("gemmi finished", "backend", backend, "jobs", f.jobs, "pool", pool.Size())

	sum := digest(results[0])
	for i, c := range results[1:] {
		if d := digest(c); d != sum {
			return NewExitError(ExitFailure, fmt.Sprintf("job %d result %s differs from job 0 result %s", i+1, d, sum))
		}
	}

	want := matrix.ReferenceMul(alpha, a, m, max(m, 1), b, beta, c0, max(m, 1))
	got := matrix.FromColMajor(m, n, max(m, 1), results[0])
	res := GemmiResult{M: m, N: n, K: k, DType: dtypeName[T](), Jobs: f.jobs, Digest: sum}
	for i := 0; i < m; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = got.At(i, j)
			res.MaxAbsDiff = math.Max(res.MaxAbsDiff, math.Abs(row[j]-want.At(i, j)))
		}
		res.C = append(res.C, row)
	}
	if err := opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "C (%dx%d, dtype=%s, jobs=%d):\n", res.M, res.N, res.DType, res.Jobs)
		for _, row := range res.C {
			fmt.Fprintln(w, row)
		}
		fmt.Fprintf(w, "max |C - reference|: %g\nxxh3: %s\n", res.MaxAbsDiff, res.Digest)
	}); err != nil {
		return err
	}
	if res.MaxAbsDiff > tolerance[T]() {
		return NewExitError(ExitFailure, fmt.Sprintf("result differs from reference by %g", res.MaxAbsDiff))
	}
	return nil
}

func tolerance[T sparse.Float]() float64 {
	if dtypeName[T]() == "float32" {
		return 1e-3
	}
	return 1e-9
}
