package acunote

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/harrisonrobin/planbridge/pkg/model"
)

// Header is the Acunote sprint import header. Import relies on this exact order.
const Header = "Level,Number,Description,Tags,Owner,Status,Resolution,Priority,Severity," +
	"Estimate,Remaining,Due Date,QA Owner,Business Owner,Wiki,Watchers,Related," +
	"Duplicate,Predecessors,Successors,Version"

// Positions within a Record.
const (
	FieldLevel = iota
	FieldNumber
	FieldDescription
	FieldTags
	FieldOwner
	FieldStatus
	FieldResolution
	FieldPriority
	FieldSeverity
	FieldEstimate
	FieldRemaining
	FieldDueDate
	FieldQAOwner
	FieldBusinessOwner
	FieldWiki
	FieldWatchers
	FieldRelated
	FieldDependents
	FieldDuplicate
	FieldPredecessors
	FieldVersion

	FieldCount
)

// Record is one Acunote import row. Unused fields stay empty.
type Record [FieldCount]string

// Line renders the record as one comma separated line.
func (r Record) Line() string {
	return strings.Join(r[:], ",")
}

// Text returns field i with CSV quoting removed.
func (r Record) Text(i int) string {
	v := r[i]
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return strings.ReplaceAll(v[1:len(v)-1], `""`, `"`)
	}
	return v
}

// Level returns the Acunote level of the record, or 0 when it is not a number.
func (r Record) Level() int {
	l, _ := strconv.Atoi(r[FieldLevel])
	return l
}

// ToRecord maps a single node, without its children, to a Record.
// Acunote levels start at 1, so a project (level 0) is written as level 1.
func ToRecord(n *model.TaskNode) Record {
	var r Record
	r[FieldLevel] = strconv.Itoa(n.Level + 1)
	r[FieldNumber] = escape(n.ExternalTaskID)
	r[FieldDescription] = escape(n.Title)
	r[FieldTags] = escape(n.Tags())
	if n.OwnerName != nil {
		r[FieldOwner] = escape(*n.OwnerName)
	}
	r[FieldPriority] = n.Priority()
	if n.EffortHours != nil {
		r[FieldEstimate] = strconv.Itoa(*n.EffortHours)
	}
	if remaining, ok := n.Remaining(); ok {
		r[FieldRemaining] = strconv.Itoa(remaining)
	}
	// Quoted so the id list survives naive splitting on commas.
	if deps := n.Dependents(); deps != "" {
		r[FieldDependents] = `"` + strings.ReplaceAll(deps, `"`, `""`) + `"`
	}
	return r
}

// Flatten returns n and its subtree as records, parent first, children in order.
func Flatten(n *model.TaskNode) []Record {
	return appendRecords(nil, n)
}

func appendRecords(out []Record, n *model.TaskNode) []Record {
	out = append(out, ToRecord(n))
	for _, c := range n.Children {
		out = appendRecords(out, c)
	}
	return out
}

// Sprint is the flattened content of one project.
type Sprint struct {
	Name    string
	Records []Record
}

// Sprints flattens each project into its own sprint, keeping project order.
// prefix is prepended to every sprint name.
func Sprints(projects []*model.TaskNode, prefix string) []Sprint {
	sprints := make([]Sprint, 0, len(projects))
	for _, p := range projects {
		sprints = append(sprints, Sprint{Name: prefix + p.Title, Records: Flatten(p)})
	}
	return sprints
}


// WriteCSV writes the header followed by one line per record.
func WriteCSV(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := bw.WriteString(r.Line() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// escape quotes free text that would otherwise shift the positional fields.
func escape(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
