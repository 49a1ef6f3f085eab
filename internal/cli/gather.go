package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/qrv0/sparrow/internal/sparse"
)

// GatherResult is the output of the gather command.
type GatherResult struct {
	DType  string    `json:"dtype"`
	Values []float64 `json:"values"`
	Digest string    `json:"xxh3"`
}

// NewGatherCommand creates the gather command.
func NewGatherCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		values []float64
		perm   []int32
	)
	cmd := &cobra.Command{
		Use:          "gather",
		Short:        "Gather values through a permutation: out[i] = values[perm[i]]",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dtype, _ := cmd.Flags().GetString("dtype")
			switch dtype {
			case "float32":
				return runGather(rootOpts, convert[float32](values), perm, cmd)
			case "float64":
				return runGather(rootOpts, values, perm, cmd)
			}
			return unsupportedDType(dtype)
		},
	}
	cmd.Flags().Float64SliceVar(&values, "values", nil, "source values")
	cmd.Flags().Int32SliceVar(&perm, "perm", nil, "zero-based source index per output")
	cmd.Flags().String("dtype", "float64", "element type (float32|float64)")
	_ = cmd.MarkFlagRequired("values")
	_ = cmd.MarkFlagRequired("perm")
	return cmd
}

func runGather[T sparse.Float](opts *RootOptions, values []T, perm []int32, cmd *cobra.Command) error {
	s, err := opts.open()
	if err != nil {
		return err
	}
	defer s.Close()

	out := make([]T, len(perm))
	if err := sparse.Gthr(s.sp, s.h, len(perm), values, out, perm, sparse.DefaultStream); err != nil {
		return WrapExitError(ExitCommandError, "gather", err)
	}
	res := GatherResult{DType: dtypeName[T](), Values: widen(out), Digest: digest(out)}
	return opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "values: %v\nxxh3:   %s\n", res.Values, res.Digest)
	})
}
