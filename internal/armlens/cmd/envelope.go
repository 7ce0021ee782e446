package cmd

import (
	"armlens/internal/jumptable"
	"armlens/internal/mmio"
)

// The JSON envelope shapes exposed to callers. All addresses are
// 0x-prefixed hex strings; mode is ARM, Thumb or none.

type writeJSON struct {
	Renamed    bool `json:"renamed"`
	CommentSet bool `json:"comment_set"`
}

type slotJSON struct {
	Slot     uint32     `json:"slot"`
	SlotAddr string     `json:"slot_addr"`
	Mode     string     `json:"mode"`
	Raw      string     `json:"raw"`
	Target   string     `json:"target,omitempty"`
	Symbol   string     `json:"symbol,omitempty"`
	Write    *writeJSON `json:"write,omitempty"`
	Errors   []string   `json:"errors"`
	Notes    []string   `json:"notes"`
}

type rangeJSON struct {
	Start uint32 `json:"start"`
	Count uint32 `json:"count"`
}

type summaryJSON struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

type scanJSON struct {
	Range   rangeJSON   `json:"range"`
	Summary summaryJSON `json:"summary"`
	Items   []slotJSON  `json:"items"`
	Notes   []string    `json:"notes,omitempty"`
}

type sampleJSON struct {
	Addr       string `json:"addr"`
	Op         string `json:"op"`
	Target     string `json:"target"`
	AddressAbs string `json:"address_abs"`
}

type mmioJSON struct {
	Function   string       `json:"function"`
	Entry      string       `json:"entry"`
	Reads      int          `json:"reads"`
	Writes     int          `json:"writes"`
	BitwiseOr  int          `json:"bitwise_or"`
	BitwiseAnd int          `json:"bitwise_and"`
	Toggles    int          `json:"toggles"`
	Annotated  int          `json:"annotated"`
	Samples    []sampleJSON `json:"samples"`
	Notes      []string     `json:"notes"`
}

func slotToJSON(res jumptable.SlotResult) slotJSON {
	out := slotJSON{
		Slot:     res.Slot,
		SlotAddr: hex(res.SlotAddr),
		Mode:     res.Outcome.Mode.String(),
		Raw:      hex(uint64(res.Raw)),
		Symbol:   res.Outcome.Symbol,
		Errors:   res.Errors,
		Notes:    res.Notes,
	}
	if res.Valid() {
		out.Target = hex(res.Outcome.Target)
	}
	if res.Write != nil {
		out.Write = &writeJSON{Renamed: res.Write.Renamed, CommentSet: res.Write.CommentSet}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if out.Notes == nil {
		out.Notes = []string{}
	}
	return out
}

func scanToJSON(sum jumptable.ScanSummary) scanJSON {
	out := scanJSON{
		Range:   rangeJSON{Start: sum.Start, Count: sum.Count},
		Summary: summaryJSON{Total: sum.Total, Valid: sum.Valid, Invalid: sum.Invalid},
		Items:   make([]slotJSON, 0, len(sum.Items)),
		Notes:   sum.Notes,
	}
	for _, it := range sum.Items {
		out.Items = append(out.Items, slotToJSON(it))
	}
	return out
}

func mmioToJSON(function string, entry uint64, sum mmio.Summary) mmioJSON {
	out := mmioJSON{
		Function:   function,
		Entry:      hex(entry),
		Reads:      sum.Reads,
		Writes:     sum.Writes,
		BitwiseOr:  sum.BitwiseOr,
		BitwiseAnd: sum.BitwiseAnd,
		Toggles:    sum.Toggles,
		Annotated:  sum.Annotated,
		Samples:    make([]sampleJSON, 0, len(sum.Samples)),
		Notes:      sum.Notes,
	}
	for _, s := range sum.Samples {
		out.Samples = append(out.Samples, sampleJSON{
			Addr:       hex(s.InstrAddr),
			Op:         s.Op.String(),
			Target:     hex(s.Immediate),
			AddressAbs: hex(s.AbsAddress),
		})
	}
	if out.Notes == nil {
		out.Notes = []string{}
	}
	return out
}
