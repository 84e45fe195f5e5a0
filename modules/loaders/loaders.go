// Package loaders parses network inputs into the core's plain data
// structures. Parsing is deliberately outside the core: everything past
// this boundary works on validated Networks and never sees a file.
package loaders

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/ui"
)

var qjson = jsoniter.ConfigCompatibleWithStandardLibrary

// networkDocument is the JSON input format.
type networkDocument struct {
	Nodes []struct {
		ID    graph.NodeID `json:"id"`
		Prior float64      `json:"prior"`
	} `json:"nodes"`
	Edges []struct {
		From graph.NodeID `json:"from"`
		To   graph.NodeID `json:"to"`
		P    float64      `json:"p"`
	} `json:"edges"`
}

// LoadJSON reads a {nodes, edges} network document.
func LoadJSON(path string) (*graph.Network[float64], error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading network %s", path)
	}

	var doc networkDocument
	if err := qjson.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing network %s", path)
	}

	net := &graph.Network[float64]{
		Priors:    make(map[graph.NodeID]float64, len(doc.Nodes)),
		EdgeProbs: make(map[graph.Arc]float64, len(doc.Edges)),
	}
	for _, n := range doc.Nodes {
		net.Priors[n.ID] = n.Prior
	}
	for _, e := range doc.Edges {
		arc := graph.Arc{From: e.From, To: e.To}
		net.Edges = append(net.Edges, arc)
		net.EdgeProbs[arc] = e.P
	}

	ui.Debug().Msgf("Loaded %v nodes and %v edges from %v", len(net.Priors), len(net.Edges), path)
	return net, nil
}

// LoadCSV reads a network split across two CSV files: an edge list
// `from,to,probability` and a prior list `node,prior`. Header rows are
// detected and skipped.
func LoadCSV(edgePath, priorPath string) (*graph.Network[float64], error) {
	net := &graph.Network[float64]{
		Priors:    make(map[graph.NodeID]float64),
		EdgeProbs: make(map[graph.Arc]float64),
	}

	err := eachCSVRow(priorPath, 2, func(line int, fields []string) error {
		node, err := parseNodeID(fields[0])
		if err != nil {
			return errors.Wrapf(err, "%s line %d", priorPath, line)
		}
		prior, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return errors.Wrapf(err, "%s line %d", priorPath, line)
		}
		net.Priors[node] = prior
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachCSVRow(edgePath, 3, func(line int, fields []string) error {
		from, err := parseNodeID(fields[0])
		if err != nil {
			return errors.Wrapf(err, "%s line %d", edgePath, line)
		}
		to, err := parseNodeID(fields[1])
		if err != nil {
			return errors.Wrapf(err, "%s line %d", edgePath, line)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return errors.Wrapf(err, "%s line %d", edgePath, line)
		}
		arc := graph.Arc{From: from, To: to}
		net.Edges = append(net.Edges, arc)
		net.EdgeProbs[arc] = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	ui.Debug().Msgf("Loaded %v nodes and %v edges from %v + %v", len(net.Priors), len(net.Edges), priorPath, edgePath)
	return net, nil
}

func eachCSVRow(path string, fields int, row func(line int, fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	r.TrimLeadingSpace = true

	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		line++
		if line == 1 {
			// Header row?
			if _, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 10, 32); err != nil {
				continue
			}
		}
		if err := row(line, rec); err != nil {
			return err
		}
	}
}

func parseNodeID(s string) (graph.NodeID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "node id %q", s)
	}
	return graph.NodeID(v), nil
}
