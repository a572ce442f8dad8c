package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cgxeiji/hbcurve"
)

// writeCSV writes one row per sample: PaO2, reference SpO2, patient SpO2.
func writeCSV(w io.Writer, p *hbcurve.Plot) error {
	if len(p.Reference) != len(p.Patient) {
		return fmt.Errorf("curves differ in length: %d and %d", len(p.Reference), len(p.Patient))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"pao2", "reference", "patient"}); err != nil {
		return err
	}
	for i, r := range p.Reference {
		if err := cw.Write([]string{
			formatFloat(r.X, 3),
			formatFloat(r.Y, 3),
			formatFloat(p.Patient[i].Y, 3),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, p *hbcurve.Plot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	return enc.Encode(p)
}

func writePlot(w io.Writer, format string, p *hbcurve.Plot) error {
	switch format {
	case formatJSON:
		return writeJSON(w, p)
	default:
		return writeCSV(w, p)
	}
}

// formatFloat formats v with at most precision decimals, without trailing
// zeros.
func formatFloat(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
