package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ginjaninja78/sales-aggregator/internal/aggregate"
	"github.com/ginjaninja78/sales-aggregator/internal/config"
	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const header = "product,price,quantity,date,region\n"

// writeSource writes a CSV source under dir and returns its path.
func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// testConfig returns the default configuration reading sources and
// writing into dir.
func testConfig(dir string, sources ...string) *config.MainConfig {
	cfg := config.Default()
	cfg.Sources = sources
	cfg.OutputFile = filepath.Join(dir, "formatted_sales_data.csv")
	return cfg
}

func newPipeline(t *testing.T, cfg *config.MainConfig) *Pipeline {
	t.Helper()
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return p
}

func salesTexts(records []types.CleanRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.SalesText() + "|" + r.DateText() + "|" + r.Region()
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxConcurrency = 0

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConcurrency)
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	p, err := New(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC), p.PriceChangeDate())
	assert.False(t, p.Loaded())
}

func TestLoad_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "daily.csv",
		" product , price ,quantity ,date, region\n"+
			"Pink Morsel , $3.00,10 ,2021-01-10, north\n"+
			"Choc Chip,$1.00,5,2021-01-10,north\n")

	p := newPipeline(t, testConfig(dir, src))

	summary, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"30.00|2021-01-10|north"}, salesTexts(p.Records()))
	assert.Equal(t, 1, summary.FilesProcessed)
	assert.Equal(t, 2, summary.RowsRead)
	assert.Equal(t, 1, summary.RowsFiltered)
	assert.Equal(t, 1, summary.RowsRetained)
	assert.Equal(t, 0, summary.RowsSkipped)
	assert.NotEmpty(t, summary.RunID)

	require.NoError(t, p.WriteArtifact(""))
	data, err := os.ReadFile(filepath.Join(dir, "formatted_sales_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "sales,date,region\n30.00,2021-01-10,north\n", string(data))
	assert.NotContains(t, string(data), "Choc")
}

func TestLoad_DecimalSales(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.csv", header+"pink morsel,$3.50,8,2021-01-10,south\n")

	p := newPipeline(t, testConfig(dir, src))
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	records := p.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "28.00", records[0].SalesText())
	assert.True(t, decimal.RequireFromString("28").Equal(records[0].Sales()))
}

func TestLoad_MissingFileTolerance(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.csv", header+"pink morsel,$3.00,1,2021-01-10,north\n")
	missing := filepath.Join(dir, "b.csv")
	c := writeSource(t, dir, "c.csv", header+"pink morsel,$3.00,2,2021-01-11,south\n")

	core, logs := observer.New(zapcore.WarnLevel)
	p, err := New(testConfig(dir, a, missing, c), zap.New(core))
	require.NoError(t, err)

	summary, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.FilesConfigured)
	assert.Equal(t, 2, summary.FilesProcessed)
	assert.Equal(t, 1, summary.FilesSkipped)
	assert.Equal(t, []string{missing}, summary.MissingFiles)
	assert.Equal(t, []string{"3.00|2021-01-10|north", "6.00|2021-01-11|south"}, salesTexts(p.Records()))

	warned := logs.FilterMessage("skipping missing source").All()
	require.Len(t, warned, 1)
	assert.Equal(t, missing, warned[0].ContextMap()["path"])
}

func TestLoad_AllSourcesMissing(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t, testConfig(dir, filepath.Join(dir, "nope.csv")))

	summary, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesSkipped)
	assert.Empty(t, p.Records())

	result := p.Series("")
	require.True(t, result.OK())
	assert.Empty(t, result.Points)
}

func TestLoad_RowErrorsAreCollected(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.csv", header+
		"pink morsel,$3.00,10,2021-01-10,north\n"+
		"pink morsel,$1,000.00,1,2021-01-10,north\n"+
		"pink morsel,abc,1,2021-01-10,north\n"+
		"pink morsel,$3.00,-2,2021-01-10,north\n"+
		"pink morsel,$3.00,1\n"+
		"choc chip,abc,x,y,z\n"+
		"pink morsel,$3.00,1,2021-01-11,east\n")

	cfg := testConfig(dir, src)
	cfg.MaxErrorSamples = 2
	p := newPipeline(t, cfg)

	summary, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"30.00|2021-01-10|north", "3.00|2021-01-11|east"}, salesTexts(p.Records()))
	assert.Equal(t, 7, summary.RowsRead)
	assert.Equal(t, 1, summary.RowsFiltered)
	assert.Equal(t, 4, summary.RowsSkipped)
	assert.Equal(t, 2, summary.RowsRetained)
	// "$1,000.00" splits into extra columns, so its quantity reads "000.00".
	assert.Equal(t, 2, summary.SkippedByKind[validation.KindInvalidQuantity])
	assert.Equal(t, 1, summary.SkippedByKind[validation.KindInvalidPrice])
	assert.Equal(t, 1, summary.SkippedByKind[validation.KindMalformedRow])

	require.Len(t, summary.Samples, 2)
	assert.Equal(t, src, summary.Samples[0].Source)
	assert.Equal(t, 3, summary.Samples[0].Line)
	assert.Equal(t, 4, summary.Samples[1].Line)
}

func TestLoad_RowWithoutProductIsMalformed(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.csv", "price,quantity,date,region\n$3.00,1,2021-01-10,north\n")

	p := newPipeline(t, testConfig(dir, src))
	summary, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RowsSkipped)
	assert.Equal(t, 0, summary.RowsFiltered)
	assert.Equal(t, 1, summary.SkippedByKind[validation.KindMalformedRow])
}

func TestLoad_FatalKeepsPreviousState(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.csv", header+"pink morsel,$3.00,10,2021-01-10,north\n")
	cfg := testConfig(dir, src)

	p := newPipeline(t, cfg)
	first, err := p.Load(context.Background())
	require.NoError(t, err)

	// A directory where a source file should be is not a missing file.
	bad := filepath.Join(dir, "dir.csv")
	require.NoError(t, os.Mkdir(bad, 0755))
	cfg.Sources = []string{src, bad}

	_, err = p.Refresh(context.Background())
	require.Error(t, err)

	var fatal *validation.IOFatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, bad, fatal.Path)
	assert.True(t, validation.IsFatal(err))

	assert.Same(t, first, p.Summary())
	assert.Equal(t, []string{"30.00|2021-01-10|north"}, salesTexts(p.Records()))
}

func TestLoad_CorruptWorkbookIsFatal(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "broken.xlsx", "this is not a workbook")

	p := newPipeline(t, testConfig(dir, src))
	_, err := p.Load(context.Background())
	require.Error(t, err)

	var fatal *validation.IOFatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "open", fatal.Op)
	assert.False(t, p.Loaded())
}

func TestLoad_WorkbookSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"product", "price", "quantity", "date", "region"},
		{"Pink Morsel", "$3.00", "10", "2021-01-10", "north"},
		{"choc chip", "$1.00", "2", "2021-01-10", "north"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	p := newPipeline(t, testConfig(dir, path))
	summary, err := p.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"30.00|2021-01-10|north"}, salesTexts(p.Records()))
	assert.Equal(t, 1, summary.RowsFiltered)
}

func TestLoad_ConcurrentKeepsFileOrder(t *testing.T) {
	dir := t.TempDir()

	var sources []string
	var want []string
	for i := 0; i < 8; i++ {
		day := time.Date(2021, 1, 1+i, 0, 0, 0, 0, time.UTC).Format(types.DateLayout)
		var body strings.Builder
		body.WriteString(header)
		for q := 1; q <= 50; q++ {
			body.WriteString("pink morsel,$1.00," + strconv.Itoa(q) + "," + day + ",north\n")
			want = append(want, strconv.Itoa(q)+".00|"+day+"|north")
		}
		sources = append(sources, writeSource(t, dir, "s"+strconv.Itoa(i)+".csv", body.String()))
	}

	sequential := newPipeline(t, testConfig(dir, sources...))
	_, err := sequential.Load(context.Background())
	require.NoError(t, err)

	cfg := testConfig(dir, sources...)
	cfg.MaxConcurrency = 4
	parallel := newPipeline(t, cfg)
	_, err = parallel.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want, salesTexts(sequential.Records()))
	assert.Equal(t, want, salesTexts(parallel.Records()))
}

func TestLoad_Cancelled(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.csv", header+"pink morsel,$3.00,10,2021-01-10,north\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, testConfig(dir, src))
	_, err := p.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, p.Loaded())
}

func TestLoad_DiscoveredSources(t *testing.T) {
	dir := t.TempDir()
	explicit := writeSource(t, dir, "z.csv", header+"pink morsel,$1.00,1,2021-01-03,north\n")

	inbox := filepath.Join(dir, "inbox")
	require.NoError(t, os.Mkdir(inbox, 0755))
	writeSource(t, inbox, "b.csv", header+"pink morsel,$1.00,2,2021-01-02,north\n")
	writeSource(t, inbox, "a.csv", header+"pink morsel,$1.00,3,2021-01-01,north\n")

	cfg := testConfig(dir, explicit)
	cfg.SourceDir = inbox
	p := newPipeline(t, cfg)

	summary, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.FilesConfigured)
	assert.Equal(t, []string{
		"1.00|2021-01-03|north",
		"3.00|2021-01-01|north",
		"2.00|2021-01-02|north",
	}, salesTexts(p.Records()))

	cfg.SourceDir = filepath.Join(dir, "absent")
	summary, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesConfigured)
}

func TestSeries(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.csv", header+
		"pink morsel,$3.00,10,2021-01-11,North\n"+
		"pink morsel,$1.00,5,2021-01-10,south\n"+
		"pink morsel,$2.00,1,2021-01-11,north\n"+
		"pink morsel,$1.00,1,2021-01-12,south\n")

	p := newPipeline(t, testConfig(dir, src))

	before := p.Series("north")
	assert.False(t, before.OK())
	assert.ErrorIs(t, before.Err, aggregate.ErrNotLoaded)
	assert.ErrorIs(t, p.WriteArtifact(""), aggregate.ErrNotLoaded)

	_, err := p.Load(context.Background())
	require.NoError(t, err)

	north := p.Series("North")
	require.True(t, north.OK())
	require.Len(t, north.Points, 1)
	assert.Equal(t, "2021-01-11", north.Points[0].DateText())
	assert.True(t, decimal.RequireFromString("32").Equal(north.Points[0].Sales))

	all := p.Series("")
	assert.Equal(t, aggregate.AllRegions, all.Region)
	require.Len(t, all.Points, 3)
	for i := 1; i < len(all.Points); i++ {
		assert.True(t, all.Points[i-1].Date.Before(all.Points[i].Date))
	}

	assert.Equal(t, []string{"north", "south"}, p.Regions())
}

func TestWriteArtifact_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.csv", header+
		"pink morsel,$3.50,8,2021-01-10,south\n"+
		"pink morsel,$3.00,10,2021-01-09,north\n")
	cfg := testConfig(dir, src)

	run := func() []byte {
		p := newPipeline(t, cfg)
		_, err := p.Load(context.Background())
		require.NoError(t, err)
		require.NoError(t, p.WriteArtifact(""))
		data, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		return data
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.Equal(t, "sales,date,region\n28.00,2021-01-10,south\n30.00,2021-01-09,north\n", string(first))
}

func TestRefresh_ConcurrentReaders(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.csv", header+"pink morsel,$3.00,10,2021-01-10,north\n")

	p := newPipeline(t, testConfig(dir, src))
	_, err := p.Load(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				result := p.Series("north")
				assert.True(t, result.OK())
				assert.Len(t, result.Points, 1)
			}
		}()
	}

	for i := 0; i < 5; i++ {
		_, err := p.Refresh(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}
