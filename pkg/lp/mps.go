package lp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// objRow is the name of the objective row in MPS output.
const objRow = "OBJ"

// ColumnName returns the MPS name of column j (0-based).
func ColumnName(j int) string { return "C" + strconv.Itoa(j+1) }

// RowName returns the MPS name of row i (0-based).
func RowName(i int) string { return "R" + strconv.Itoa(i+1) }

// WriteMPS writes m in free MPS format.
//
// Rows and columns are named positionally (R1..Rm, C1..Cn) so that any
// solver can round-trip the model regardless of the characters used in
// variable and constraint names; the original names are listed in comment
// lines. Maximisation models are written with a negated objective, which
// keeps the file readable by solvers that do not support OBJSENSE.
// Binary columns are wrapped in INTORG markers and given BV bounds.
func WriteMPS(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	name := m.Name
	if name == "" {
		name = "chainopt"
	}
	fmt.Fprintf(bw, "* %s (%s)\n", name, m.Sense)
	for j, v := range m.vars {
		fmt.Fprintf(bw, "* %s = %s\n", ColumnName(j), v.Name)
	}
	for i, c := range m.constraints {
		fmt.Fprintf(bw, "* %s = %s\n", RowName(i), c.Name)
	}
	fmt.Fprintf(bw, "NAME %s\n", strings.Join(strings.Fields(name), "_"))

	fmt.Fprint(bw, "ROWS\n")
	fmt.Fprintf(bw, " N %s\n", objRow)
	for i, c := range m.constraints {
		fmt.Fprintf(bw, " %s %s\n", rowType(c.Sense), RowName(i))
	}

	// Column-major view of the constraint matrix.
	type entry struct {
		row  int
		coef float64
	}
	cols := make([][]entry, len(m.vars))
	for i, c := range m.constraints {
		for _, t := range c.Expr.Terms {
			j := m.index[t.Var]
			cols[j] = append(cols[j], entry{row: i, coef: t.Coef})
		}
	}

	obj := m.ObjectiveCoefficients()
	if m.Sense == Maximize {
		for j := range obj {
			if obj[j] != 0 {
				obj[j] = -obj[j]
			}
		}
	}

	fmt.Fprint(bw, "COLUMNS\n")
	inInt := false
	for j, v := range m.vars {
		isInt := v.Domain == Binary
		if isInt != inInt {
			if isInt {
				fmt.Fprint(bw, " MARKER 'MARKER' 'INTORG'\n")
			} else {
				fmt.Fprint(bw, " MARKER 'MARKER' 'INTEND'\n")
			}
			inInt = isInt
		}
		// Always emit the objective entry so every column is declared.
		fmt.Fprintf(bw, " %s %s %s\n", ColumnName(j), objRow, formatFloat(obj[j]))
		for _, e := range cols[j] {
			fmt.Fprintf(bw, " %s %s %s\n", ColumnName(j), RowName(e.row), formatFloat(e.coef))
		}
	}
	if inInt {
		fmt.Fprint(bw, " MARKER 'MARKER' 'INTEND'\n")
	}

	fmt.Fprint(bw, "RHS\n")
	for i, c := range m.constraints {
		if c.RHS != 0 {
			fmt.Fprintf(bw, " RHS %s %s\n", RowName(i), formatFloat(c.RHS))
		}
	}

	fmt.Fprint(bw, "BOUNDS\n")
	for j, v := range m.vars {
		switch {
		case v.Domain == Binary:
			fmt.Fprintf(bw, " BV BND %s\n", ColumnName(j))
		case !math.IsInf(v.Upper, 1):
			fmt.Fprintf(bw, " UP BND %s %s\n", ColumnName(j), formatFloat(v.Upper))
		}
	}
	fmt.Fprint(bw, "ENDATA\n")

	return bw.Flush()
}

func rowType(s Sense) string {
	switch s {
	case GE:
		return "G"
	case EQ:
		return "E"
	default:
		return "L"
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
