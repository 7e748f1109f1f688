package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"datachat/backend"
)

// Payload is the canonical in-memory answer shape every backend reply is
// reduced to before it touches the message list or the cache.
type Payload struct {
	Query     string
	Rows      []map[string]any
	Columns   []string
	ChartSpec map[string]any
	Content   string
}

// Normalize maps a raw backend answer into the canonical payload. It is total
// and pure: any shape the backend sends, including a zero value, produces
// defined rows, columns, an optional chart and non-empty content.
func Normalize(resp *backend.AskResponse) Payload {
	if resp == nil {
		resp = &backend.AskResponse{}
	}

	rows := decodeRows(resp.Result.Rows)
	columns := decodeColumns(resp.Result.Columns)
	if len(columns) == 0 && len(rows) > 0 {
		columns = columnsFromRow(rows[0])
	}

	p := Payload{
		Query:     resp.Query,
		Rows:      rows,
		Columns:   columns,
		ChartSpec: decodeChart(resp.Chart),
	}

	if content := strings.TrimSpace(resp.Summary); content != "" {
		p.Content = content
	} else if content := strings.TrimSpace(resp.Message); content != "" {
		p.Content = content
	} else if len(rows) > 0 {
		p.Content = fmt.Sprintf("Returned %d rows × %d columns.", len(rows), len(columns))
	} else {
		p.Content = "No rows returned for this question."
	}

	return p
}

// decodeRows resolves the two row encodings the backend is known to emit: a
// plain array of records, or a keyed object whose every value is a record
// (a column-major style some responses use). Anything else is no rows.
func decodeRows(raw json.RawMessage) []map[string]any {
	if len(raw) == 0 {
		return []map[string]any{}
	}

	var asList []map[string]any
	if err := json.Unmarshal(raw, &asList); err == nil {
		if asList == nil {
			asList = []map[string]any{}
		}
		return asList
	}

	var asKeyed map[string]map[string]any
	if err := json.Unmarshal(raw, &asKeyed); err == nil && len(asKeyed) > 0 {
		keys := make([]string, 0, len(asKeyed))
		allRecords := true
		for k, v := range asKeyed {
			if v == nil {
				allRecords = false
				break
			}
			keys = append(keys, k)
		}
		if allRecords {
			sortKeyed(keys)
			rows := make([]map[string]any, 0, len(keys))
			for _, k := range keys {
				rows = append(rows, asKeyed[k])
			}
			return rows
		}
	}

	return []map[string]any{}
}

// sortKeyed orders keyed-object row keys numerically when they all parse as
// integers (the usual "0", "1", ... encoding), lexically otherwise.
func sortKeyed(keys []string) {
	nums := make(map[string]int, len(keys))
	numeric := true
	for _, k := range keys {
		n, err := strconv.Atoi(k)
		if err != nil {
			numeric = false
			break
		}
		nums[k] = n
	}
	if numeric {
		sort.Slice(keys, func(i, j int) bool { return nums[keys[i]] < nums[keys[j]] })
		return
	}
	sort.Strings(keys)
}

func decodeColumns(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var cols []string
	if err := json.Unmarshal(raw, &cols); err != nil || len(cols) == 0 {
		return []string{}
	}
	return cols
}

func columnsFromRow(row map[string]any) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// decodeChart accepts a chart specification either as an embedded object or
// as a JSON string. A string that does not parse yields no chart, never an
// error.
func decodeChart(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		var spec map[string]any
		if err := json.Unmarshal([]byte(asString), &spec); err != nil || len(spec) == 0 {
			return nil
		}
		return spec
	}

	var spec map[string]any
	if err := json.Unmarshal(raw, &spec); err != nil || spec == nil {
		return nil
	}
	return spec
}
