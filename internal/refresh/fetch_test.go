package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchToTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("line one\nline two\n"))
	}))
	defer srv.Close()

	f, err := fetchToTempFile(context.Background(), srv.URL)
	require.NoError(t, err)
	defer removeTemp(f)

	var lines []string
	_, err = scanLines(f, 10, func(line string) (string, bool) {
		return line, line != ""
	}, func(batch []string) error {
		lines = append(lines, batch...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"line one", "line two"}, lines)
}

func TestFetchToTempFile_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fetchToTempFile(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestScanLines_BatchesAndSkipsMalformed(t *testing.T) {
	f, err := os.CreateTemp("", "fraudengine-test-*")
	require.NoError(t, err)
	defer removeTemp(f)

	f.WriteString("1\nbad\n2\n3\nbad\n4\n")
	_, err = f.Seek(0, 0)
	require.NoError(t, err)

	var allBatches [][]int
	total, err := scanLines(f, 2, func(line string) (int, bool) {
		n, err := strconv.Atoi(line)
		return n, err == nil
	}, func(batch []int) error {
		allBatches = append(allBatches, append([]int{}, batch...))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, allBatches, 2)
}

func TestDecodeJSONArray(t *testing.T) {
	f, err := os.CreateTemp("", "fraudengine-test-*")
	require.NoError(t, err)
	defer removeTemp(f)

	f.WriteString(`["a.com","b.com"]`)
	_, err = f.Seek(0, 0)
	require.NoError(t, err)

	out, err := decodeJSONArray[string](f)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com"}, out)
}
