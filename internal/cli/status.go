package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/qrv0/sparrow/internal/sparse"
)

type statusEntry struct {
	Code int32  `json:"code"`
	Name string `json:"name"`
}

// StatusResult is the output of the status command.
type StatusResult struct {
	Backend       string        `json:"backend"`
	CUDAAvailable bool          `json:"cuda_available"`
	Statuses      []statusEntry `json:"statuses"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var codes []int32
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the selected backend and translate status codes",
		Long: `Print the runtime backend in use and the status code table.

With --code, translate only the given codes. Codes outside the table
translate to CUSPARSE_STATUS_UNKNOWN.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, codes, cmd)
		},
	}
	cmd.Flags().Int32SliceVar(&codes, "code", nil, "status codes to translate")
	return cmd
}

func runStatus(opts *RootOptions, codes []int32, cmd *cobra.Command) error {
	_, backend, _, err := opts.openRuntime()
	if err != nil {
		return err
	}
	res := StatusResult{Backend: string(backend), CUDAAvailable: sparse.Available()}
	if len(codes) == 0 {
		for _, st := range sparse.Statuses() {
			res.Statuses = append(res.Statuses, statusEntry{Code: int32(st), Name: st.String()})
		}
	}
	for _, c := range codes {
		res.Statuses = append(res.Statuses, statusEntry{Code: c, Name: sparse.Status(c).String()})
	}
	return opts.formatter(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "backend: %s (cuda available: %t)\n", res.Backend, res.CUDAAvailable)
		for _, e := range res.Statuses {
			fmt.Fprintf(w, "%4d  %s\n", e.Code, e.Name)
		}
	})
}
