package csvwriter

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(sales, date, region string) types.CleanRecord {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return types.NewCleanRecord(decimal.RequireFromString(sales), d, date, region)
}

func TestWrite(t *testing.T) {
	records := []types.CleanRecord{
		record("30.00", "2021-01-10", "north"),
		record("28.00", "2021-01-09", "south"),
		record("1.5", "2021-01-10", "east, upper"),
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))

	want := "sales,date,region\n" +
		"30.00,2021-01-10,north\n" +
		"28.00,2021-01-09,south\n" +
		"1.5,2021-01-10,\"east, upper\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "sales,date,region\n", buf.String())
}

func TestWriteFile_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "formatted_sales_data.csv")
	records := []types.CleanRecord{record("3.00", "2021-01-10", "north")}

	require.NoError(t, WriteFile(path, records))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, records))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWriteFile_FailureIsFatal(t *testing.T) {
	// A directory at the destination cannot be replaced by a file.
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.Mkdir(path, 0755))

	err := WriteFile(path, []types.CleanRecord{record("1", "2021-01-01", "x")})
	require.Error(t, err)

	var fatal *validation.IOFatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "write", fatal.Op)
	assert.Equal(t, path, fatal.Path)

	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}
