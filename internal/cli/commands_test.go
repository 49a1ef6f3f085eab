package cli

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrv0/sparrow/internal/sparse"
)

// 3x4 with entries (2,3)=4 (0,2)=2 (1,0)=3 (0,1)=1
const sampleCOO = `{"rows":3,"cols":4,"row_ind":[2,0,1,0],"col_ind":[3,2,0,1],"val":[4,2,3,1]}`

func TestStatusTable(t *testing.T) {
	res := executeJSON[StatusResult](t, "status")
	assert.Equal(t, "host", res.Backend)
	require.Len(t, res.Statuses, 12)
	assert.Equal(t, "CUSPARSE_STATUS_SUCCESS", res.Statuses[0].Name)
	assert.Equal(t, "CUSPARSE_STATUS_INSUFFICIENT_RESOURCES", res.Statuses[11].Name)
}

func TestStatusTranslateCodes(t *testing.T) {
	res := executeJSON[StatusResult](t, "status", "--code", "3,99,-1")
	require.Len(t, res.Statuses, 3)
	assert.Equal(t, "CUSPARSE_STATUS_INVALID_VALUE", res.Statuses[0].Name)
	assert.Equal(t, sparse.UnknownStatusName, res.Statuses[1].Name)
	assert.Equal(t, sparse.UnknownStatusName, res.Statuses[2].Name)
}

func TestStatusText(t *testing.T) {
	out, err := execute(t, "status", "--code", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: host")
	assert.Contains(t, out, "CUSPARSE_STATUS_INTERNAL_ERROR")
}

func TestCoo2Csr(t *testing.T) {
	in := writeFile(t, "a.json", sampleCOO)
	res := executeJSON[CSRResult](t, "coo2csr", in)
	assert.Equal(t, []int32{0, 2, 3, 4}, res.RowPtr)
	assert.Equal(t, []int32{2, 1, 0, 3}, res.ColInd)
	assert.Equal(t, []float64{2, 1, 3, 4}, res.Val)
	assert.Equal(t, "float64", res.DType)
	assert.Len(t, res.Digest, 16)

	res32 := executeJSON[CSRResult](t, "coo2csr", "--dtype", "float32", in)
	assert.Equal(t, "float32", res32.DType)
	assert.Equal(t, res.Val, res32.Val)
	assert.NotEqual(t, res.Digest, res32.Digest)
}

func TestCoo2CsrRejectsBadInput(t *testing.T) {
	in := writeFile(t, "bad.json", `{"rows":1,"cols":1,"row_ind":[4],"col_ind":[0],"val":[1]}`)
	_, err := execute(t, "coo2csr", in)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSort(t *testing.T) {
	in := writeFile(t, "a.json", sampleCOO)
	res := executeJSON[SortResult](t, "sort", in)
	assert.Equal(t, []int32{0, 0, 1, 2}, res.RowInd)
	assert.Equal(t, []int32{2, 1, 0, 3}, res.ColInd)
	assert.Equal(t, []int32{1, 3, 2, 0}, res.Perm)
	assert.Positive(t, res.ScratchBytes)
}

func TestSortScratchTooSmall(t *testing.T) {
	in := writeFile(t, "a.json", sampleCOO)
	_, err := execute(t, "sort", "--scratch", "1", in)
	require.Error(t, err)
	assert.ErrorIs(t, err, sparse.ErrScratchTooSmall)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGather(t *testing.T) {
	res := executeJSON[GatherResult](t, "gather", "--values", "10,20,30", "--perm", "2,0,1")
	assert.Equal(t, []float64{30, 10, 20}, res.Values)

	res32 := executeJSON[GatherResult](t, "gather", "--dtype", "float32", "--values", "1.5,2.5", "--perm", "1,1")
	assert.Equal(t, []float64{2.5, 2.5}, res32.Values)
}

func TestGatherRequiresFlags(t *testing.T) {
	_, err := execute(t, "gather", "--values", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "perm")
}

func TestGemmiConcurrentJobs(t *testing.T) {
	b := writeFile(t, "b.json", sampleCOO)
	a := writeFile(t, "a.json", `{"rows":2,"cols":3,"data":[1,2,3,4,5,6]}`)

	res := executeJSON[GemmiResult](t, "gemmi", b, "--a", a, "--jobs", "3")
	assert.Equal(t, [][]float64{{6, 1, 2, 12}, {15, 4, 8, 24}}, res.C)
	assert.Zero(t, res.MaxAbsDiff)
	assert.Equal(t, 3, res.Jobs)
}

func TestGemmiAlphaBeta(t *testing.T) {
	b := writeFile(t, "b.json", sampleCOO)
	a := writeFile(t, "a.json", `{"rows":2,"cols":3,"data":[1,2,3,4,5,6]}`)
	c := writeFile(t, "c.json", `{"rows":2,"cols":4,"data":[1,1,1,1,2,2,2,2]}`)

	res := executeJSON[GemmiResult](t, "gemmi", b, "--a", a, "--c", c, "--alpha", "2", "--beta", "0.5", "--dtype", "float32")
	assert.Equal(t, [][]float64{{12.5, 2.5, 4.5, 24.5}, {31, 9, 17, 49}}, res.C)
	assert.Equal(t, "float32", res.DType)
}

func TestGemmiShapeMismatch(t *testing.T) {
	b := writeFile(t, "b.json", sampleCOO)
	a := writeFile(t, "a.json", `{"rows":2,"cols":2,"data":[1,2,3,4]}`)
	_, err := execute(t, "gemmi", b, "--a", a)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPackVerify(t *testing.T) {
	in := writeFile(t, "a.json", sampleCOO)
	for _, comp := range []string{"none", "lz4", "zstd"} {
		t.Run(comp, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "a.spmx")
			packed := executeJSON[PackResult](t, "pack", in, "-o", out, "--compression", comp, "--dtype", "float32")
			assert.Equal(t, 4, packed.NNZ)

			res := executeJSON[VerifyResult](t, "verify", out)
			assert.True(t, res.OK)
			assert.Equal(t, "float32", res.DType)
			assert.Equal(t, 3, res.Rows)

			// dtype comes from the container when --dtype is not given
			csr := executeJSON[CSRResult](t, "coo2csr", out)
			assert.Equal(t, "float32", csr.DType)
			assert.Equal(t, []int32{0, 2, 3, 4}, csr.RowPtr)
		})
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	in := writeFile(t, "a.json", sampleCOO)
	out := filepath.Join(t.TempDir(), "a.spmx")
	_, err := execute(t, "pack", in, "-o", out, "--compression", "none")
	require.NoError(t, err)

	// values is the last section and is stored uncompressed
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(out, data, 0o644))

	stdout, err := execute(t, "verify", out)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "checksum mismatch")
}

func TestVerifyCorruptTOC(t *testing.T) {
	in := writeFile(t, "a.json", sampleCOO)
	out := filepath.Join(t.TempDir(), "a.spmx")
	_, err := execute(t, "pack", in, "-o", out)
	require.NoError(t, err)

	// size field of the last toc entry (values)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	binary.LittleEndian.PutUint64(data[20+3*24+12:], 1<<62)
	require.NoError(t, os.WriteFile(out, data, 0o644))

	_, err = execute(t, "verify", out)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerifyMissingFile(t *testing.T) {
	_, err := execute(t, "verify", filepath.Join(t.TempDir(), "none.spmx"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
