// Package batch splits loaded tables into fixed-size row groups and renders
// them as the plain-text excerpt sent to the extraction model.
package batch

import (
	"iter"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/listing-extract/internal/table"
)

// Batch is a contiguous run of rows from one input table, identified by the
// index of its first row within that table.
type Batch struct {
	File  string
	Start int
	Rows  *table.Table
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int {
	return b.Rows.Len()
}

// End returns the index one past the batch's last row.
func (b Batch) End() int {
	return b.Start + b.Len()
}

// Split yields consecutive, non-overlapping batches of at most size rows in
// table order. The sequence is lazy and may be ranged over more than once.
// An empty table or a size below one yields nothing.
func Split(t *table.Table, size int) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		if size < 1 {
			return
		}
		for start := 0; start < t.Len(); start += size {
			b := Batch{
				File:  t.Name,
				Start: start,
				Rows:  t.Slice(start, start+size),
			}
			if !yield(b) {
				return
			}
		}
	}
}

// Render formats the batch as a right-aligned text table with a header line
// and no row index.
func (b Batch) Render() string {
	return Render(b.Rows)
}

// Render formats t as a right-aligned text table with a header line and no
// row index.
func Render(t *table.Table) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 1, ' ', tabwriter.AlignRight)

	writeLine(w, t.Columns)
	for _, row := range t.Rows {
		writeLine(w, row)
	}
	_ = w.Flush()

	return strings.TrimRight(sb.String(), "\n")
}

func writeLine(w *tabwriter.Writer, cells []string) {
	for _, c := range cells {
		_, _ = w.Write([]byte(cellText(c)))
		_, _ = w.Write([]byte{'\t'})
	}
	_, _ = w.Write([]byte{'\n'})
}

// cellText keeps each cell on one line so column alignment survives.
var cellReplacer = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`, "\t", " ")

func cellText(s string) string {
	return cellReplacer.Replace(s)
}
