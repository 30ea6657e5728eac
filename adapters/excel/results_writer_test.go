package excel

import (
	"bytes"
	"context"
	"testing"

	"trialdesk/adapters/placeholder"
	"trialdesk/domain/trial"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteResults(t *testing.T) {
	records, err := placeholder.NewCatalog().FindTrials(context.Background(), trial.PatientQuery{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, len(records)+1)

	assert.Equal(t, Headers, rows[0])
	for i, record := range records {
		row := rows[i+1]
		assert.Equal(t, record.NCTID, row[0])
		assert.Equal(t, record.Title, row[1])
		assert.Equal(t, record.Link, row[6])
	}
	assert.Equal(t, "0.86", rows[1][5])
}

func TestWriteResultsOptionalFields(t *testing.T) {
	yes := true
	records := []trial.TrialRecord{
		{NCTID: "NCT00000001", Title: "Bare record"},
		{NCTID: "NCT00000002", Title: "Randomized record", Randomized: &yes},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	randomized, err := f.GetCellValue(SheetName, "D2")
	require.NoError(t, err)
	assert.Equal(t, "", randomized)

	randomized, err = f.GetCellValue(SheetName, "D3")
	require.NoError(t, err)
	assert.Equal(t, "Randomized", randomized)

	link, err := f.GetCellValue(SheetName, "G2")
	require.NoError(t, err)
	assert.Equal(t, "https://clinicaltrials.gov/study/NCT00000001", link)
}

func TestWriteResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
