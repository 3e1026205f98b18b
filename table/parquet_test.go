package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func TestGetParquetSchema(t *testing.T) {
	tbl, err := New([]string{"Saving accounts", "1st", "amount"}, [][]string{{"little", "a", "1.5"}})
	require.NoError(t, err)

	schema, names, err := ParquetSchema(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"Saving_accounts", "C1st", "amount"}, names)
	assert.Equal(t, `{"Tag":"name=parquet_go_root, repetitiontype=REQUIRED","Fields":[{"Tag":"type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN, name=Saving_accounts, repetitiontype=OPTIONAL"},{"Tag":"type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN, name=C1st, repetitiontype=OPTIONAL"},{"Tag":"type=DOUBLE, name=amount, repetitiontype=OPTIONAL"}]}`, schema)
}

func TestWriteParquetFullCycle(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(creditCSV))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "predictions.parquet")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteParquet(f, tbl))
	require.NoError(t, f.Close())

	schema, _, err := ParquetSchema(tbl)
	require.NoError(t, err)

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, schema, 4)
	require.NoError(t, err)
	defer pr.ReadStop()

	assert.Equal(t, int64(tbl.Len()), pr.GetNumRows())
}
