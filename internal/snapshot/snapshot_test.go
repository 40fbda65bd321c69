package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
)

func sampleRecs() []reorder.Recommendation {
	ma := 13.33
	return []reorder.Recommendation{
		{
			Product:           "Product A",
			CurrentStock:      5,
			AvgDemand:         13,
			SafetyStock:       20.47,
			ReorderPoint:      111.47,
			InventoryTurnover: 949,
			NeedsReorder:      true,
			PotentialStockout: true,
			DaysUntilStockout: reorder.DaysOf(0.4),
			StdDemand:         4.69,
			MovingAvgDemand:   &ma,
		},
		{
			Product:           "Slow, Mover",
			CurrentStock:      12,
			DaysUntilStockout: reorder.Unbounded(),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecs()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Columns, ","), lines[0])
	assert.Equal(t, "Product A,5,13,20.47,111.47,949,true,true,0.4,4.69,13.33", lines[1])
	assert.Equal(t, `"Slow, Mover",12,0,0,0,0,false,false,inf,0,`, lines[2])
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir(), "recommendations.csv")

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, store.Save(sampleRecs()))
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleRecs(), got)
}

func TestReadCSVLegacyColumns(t *testing.T) {
	input := "product,current_stock,avg_demand,safety_stock,reorder_point,inventory_turnover," +
		"needs_reorder,potential_stockout,days_until_stockout\n" +
		"A,25,11,15.74,92.74,160.6,True,True,2.3\n"

	recs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].NeedsReorder)
	assert.Equal(t, 2.3, recs[0].DaysUntilStockout.Float64())
	assert.Nil(t, recs[0].MovingAvgDemand)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("product,current_stock\nA,1\n"))
	assert.ErrorContains(t, err, "avg_demand")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecs()[:1]))
	broken := strings.Replace(buf.String(), "111.47", "lots", 1)
	_, err = ReadCSV(strings.NewReader(broken))
	assert.ErrorContains(t, err, "reorder_point")

	_, err = ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestWriteFileAtomicFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	boom := errors.New("boom")
	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file cleaned up")
}

func TestFileStoreConcurrentSaves(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested"), "snap.csv")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs := []reorder.Recommendation{{
				Product:           fmt.Sprintf("P%d", i),
				CurrentStock:      i,
				DaysUntilStockout: reorder.Unbounded(),
			}}
			assert.NoError(t, store.Save(recs))
		}(i)
	}
	wg.Wait()

	recs, err := store.Load()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, fmt.Sprintf("P%d", recs[0].CurrentStock), recs[0].Product)
}
