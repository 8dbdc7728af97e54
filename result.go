//
// Copyright (c) 2019-2026 Markku Rossi
//
// All rights reserved.
//

// Package tallier implements the result reporting of the tallier MPC
// engine.
package tallier

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/markkurossi/tabulate"
	"github.com/markkurossi/tallier/field"
)

// Kind specifies how a result value is rendered.
type Kind int

// Result kinds.
const (
	KindNumber Kind = iota
	KindBool
	KindBits
)

// Result is an opened computation result.
type Result struct {
	Name  string
	Kind  Kind
	Value field.Element

	// Bits are the opened input bits of a KindBits result whose Value
	// is computed from them.
	Bits []field.Element
}

// Format formats the result value. The base applies to numbers and
// defaults to 10.
func (r Result) Format(base int) string {
	switch r.Kind {
	case KindBool:
		return strconv.FormatBool(r.Value != 0)

	case KindBits:
		var str string
		for _, bit := range r.Bits {
			str += strconv.FormatUint(uint64(bit), 10)
		}
		return str + " -> " + strconv.FormatUint(uint64(r.Value), 10)

	default:
		if base == 0 {
			base = 10
		}
		return strconv.FormatUint(uint64(r.Value), base)
	}
}

// PrintResults prints the result values as a table to w. If w is
// nil, the results are printed to standard output.
func PrintResults(w io.Writer, results []Result, base int) {
	if w == nil {
		w = os.Stdout
	}
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Result").SetAlign(tabulate.ML)
	tab.Header("Name").SetAlign(tabulate.ML)
	tab.Header("Value").SetAlign(tabulate.MR)

	for idx, result := range results {
		row := tab.Row()
		row.Column(fmt.Sprintf("%d", idx))
		row.Column(result.Name)
		row.Column(result.Format(base)).SetFormat(tabulate.FmtBold)
	}
	tab.Print(w)
}
