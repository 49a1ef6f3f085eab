package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/qrv0/sparrow/internal/fileformat"
	"github.com/qrv0/sparrow/internal/sparse"
)

// PackResult is the output of the pack command.
type PackResult struct {
	Output      string `json:"output"`
	DType       string `json:"dtype"`
	NNZ         int    `json:"nnz"`
	Compression string `json:"compression"`
}

// NewPackCommand creates the pack command.
func NewPackCommand(rootOpts *RootOptions) *cobra.Command {
	var out, compression string
	cmd := &cobra.Command{
		Use:   "pack <matrix.json> -o <matrix.spmx>",
		Short: "Write a COO matrix into a checksummed .spmx container",
		Long: `Write a COO matrix into an .spmx container.

Index and value sections are compressed with the configured codec
(none|lz4|zstd) and checksummed with rolling xxh3-64 hashes.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dtype, _ := cmd.Flags().GetString("dtype")
			switch dtype {
			case "float32":
				return runPack[float32](rootOpts, args[0], out, compression, cmd)
			case "float64":
				return runPack[float64](rootOpts, args[0], out, compression, cmd)
			}
			return unsupportedDType(dtype)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output .spmx path")
	cmd.Flags().StringVar(&compression, "compression", "", "override container.compression (none|lz4|zstd)")
	cmd.Flags().String("dtype", "float64", "stored element type (float32|float64)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runPack[T sparse.Float](opts *RootOptions, in, out, compression string, cmd *cobra.Command) error {
	cc := opts.config().Container
	if compression != "" {
		cc.Compression = compression
	}
	flags, err := cc.Flags()
	if err != nil {
		return WrapExitError(ExitCommandError, "compression", err)
	}
	coo, err := loadCOO[T](in)
	if err != nil {
		return WrapExitError(ExitCommandError, "read input", err)
	}
	if err := fileformat.WriteCOO(out, coo, fileformat.Options{Flags: flags, ChunkSize: cc.ChunkSize}); err != nil {
		return WrapExitError(ExitCommandError, "write container", err)
	}
	res := PackResult{Output: out, DType: dtypeName[T](), NNZ: coo.NNZ(), Compression: cc.Compression}
	return opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "wrote %s (%d nnz, %s, %s)\n", res.Output, res.NNZ, res.DType, res.Compression)
	})
}

// VerifyResult is the output of the verify command.
type VerifyResult struct {
	Path     string   `json:"path"`
	OK       bool     `json:"ok"`
	Rows     int      `json:"rows"`
	Cols     int      `json:"cols"`
	NNZ      int      `json:"nnz"`
	DType    string   `json:"dtype"`
	Mismatch []uint32 `json:"mismatch,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "verify <matrix.spmx>",
		Short:        "Recompute and compare container checksums",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}
}

func runVerify(opts *RootOptions, path string, cmd *cobra.Command) error {
	r, err := fileformat.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open container", err)
	}
	defer r.Close()
	m, err := r.Meta()
	if err != nil {
		return WrapExitError(ExitCommandError, "read meta", err)
	}
	bad, err := r.Verify()
	if err != nil {
		return WrapExitError(ExitCommandError, "verify", err)
	}
	res := VerifyResult{Path: path, OK: len(bad) == 0, Rows: m.Rows, Cols: m.Cols, NNZ: m.NNZ, DType: m.DType, Mismatch: bad}
	if err := opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %dx%d nnz=%d dtype=%s\n", res.Path, res.Rows, res.Cols, res.NNZ, res.DType)
		if res.OK {
			fmt.Fprintln(w, "checksums OK")
			return
		}
		fmt.Fprintf(w, "checksum mismatch in sections %v\n", res.Mismatch)
	}); err != nil {
		return err
	}
	if !res.OK {
		opts.log().Warn("checksum mismatch", "path", path, "sections", bad)
		return NewExitError(ExitFailure, "checksum mismatch")
	}
	return nil
}
