package acunote

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/harrisonrobin/planbridge/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestHeaderMatchesRecordWidth(t *testing.T) {
	assert.Len(t, strings.Split(Header, ","), FieldCount)
	assert.Equal(t, 21, FieldCount)
}

func TestToRecord(t *testing.T) {
	n := &model.TaskNode{
		Title:           "Write importer",
		Level:           1,
		OwnerName:       strPtr("Alice"),
		EffortHours:     intPtr(5),
		EffortDoneHours: intPtr(2),
		PriorityRaw:     strPtr("P1"),
		ExternalTaskID:  "12",
		MetaData:        map[string]any{model.MetaTags: "backend"},
		Children: []*model.TaskNode{
			{ExternalTaskID: "13"},
			{ExternalTaskID: "14"},
		},
	}

	r := ToRecord(n)
	assert.Equal(t, "2", r[FieldLevel])
	assert.Equal(t, "12", r[FieldNumber])
	assert.Equal(t, "Write importer", r[FieldDescription])
	assert.Equal(t, "backend", r[FieldTags])
	assert.Equal(t, "Alice", r[FieldOwner])
	assert.Equal(t, "5", r[FieldPriority])
	assert.Equal(t, "5", r[FieldEstimate])
	assert.Equal(t, "3", r[FieldRemaining])
	assert.Equal(t, `"13,14"`, r[FieldDependents])

	assert.Equal(t, `2,12,Write importer,backend,Alice,,,5,,5,3,,,,,,,"13,14",,,`, r.Line())
}

func TestToRecordEmptyFields(t *testing.T) {
	r := ToRecord(&model.TaskNode{Title: "Bare"})
	assert.Equal(t, "1,,Bare,,,,,,,,,,,,,,,,,,", r.Line())
	assert.Equal(t, "", r[FieldDependents])
}

func TestToRecordEscapesText(t *testing.T) {
	r := ToRecord(&model.TaskNode{Title: `Fix "login", again`})
	assert.Equal(t, `"Fix ""login"", again"`, r[FieldDescription])
	assert.Equal(t, `Fix "login", again`, r.Text(FieldDescription))
}

func TestToRecordKeepsFieldCount(t *testing.T) {
	n := &model.TaskNode{
		Title:          "A",
		ExternalTaskID: "12,13",
		Children:       []*model.TaskNode{{ExternalTaskID: `7"b`}},
	}

	r := ToRecord(n)
	assert.Equal(t, `"12,13"`, r[FieldNumber])
	assert.Equal(t, "12,13", r.Text(FieldNumber))
	assert.Equal(t, `"7""b"`, r[FieldDependents])

	fields, err := csv.NewReader(strings.NewReader(r.Line())).Read()
	require.NoError(t, err)
	assert.Len(t, fields, FieldCount)
	assert.Equal(t, "12,13", fields[FieldNumber])
	assert.Equal(t, `7"b`, fields[FieldDependents])
}

func TestFlattenPreOrder(t *testing.T) {
	d := &model.TaskNode{Title: "D", Level: 2}
	c := &model.TaskNode{Title: "C", Level: 1, Children: []*model.TaskNode{d}}
	b := &model.TaskNode{Title: "B", Level: 1}
	a := &model.TaskNode{Title: "A", Level: 0, Children: []*model.TaskNode{b, c}}

	records := Flatten(a)
	require.Len(t, records, 4)
	var titles []string
	for _, r := range records {
		titles = append(titles, r[FieldDescription])
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, titles)
	assert.Equal(t, 3, records[3].Level())
}

func TestSprints(t *testing.T) {
	projects := []*model.TaskNode{
		{Title: "Alpha", Children: []*model.TaskNode{{Title: "a1", Level: 1}}},
		{Title: "Beta"},
	}

	sprints := Sprints(projects, "TEST ")
	require.Len(t, sprints, 2)
	assert.Equal(t, "TEST Alpha", sprints[0].Name)
	assert.Len(t, sprints[0].Records, 2)
	assert.Equal(t, "TEST Beta", sprints[1].Name)
	assert.Len(t, sprints[1].Records, 1)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	records := Flatten(&model.TaskNode{Title: "Only"})
	require.NoError(t, WriteCSV(&buf, records))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, records[0].Line(), lines[1])
}
