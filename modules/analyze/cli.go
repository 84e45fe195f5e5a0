package analyze

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/beliefdag/beliefdag/modules/basedata"
	"github.com/beliefdag/beliefdag/modules/belief"
	"github.com/beliefdag/beliefdag/modules/cli"
	"github.com/beliefdag/beliefdag/modules/diamond"
	"github.com/beliefdag/beliefdag/modules/flow"
	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/loaders"
	"github.com/beliefdag/beliefdag/modules/montecarlo"
	"github.com/beliefdag/beliefdag/modules/ui"
	"github.com/beliefdag/beliefdag/modules/util"
)

var (
	Command = &cobra.Command{
		Use:   "analyze [-options]",
		Short: "Computes exact node beliefs for a probabilistic network",
	}

	input      = Command.Flags().String("input", "", "Network file in JSON format")
	inputEdges = Command.Flags().String("edges", "", "Edge list CSV (with --priors)")
	inputPrior = Command.Flags().String("priors", "", "Node prior CSV (with --edges)")
	domain     = Command.Flags().String("domain", "prob", "Numeric domain: prob, interval or pbox")
	output     = Command.Flags().String("output", "results.json", "Output file")
	format     = Command.Flags().String("format", "json", "Output format: json or csv (csv emits beliefs only)")

	withCapacity = Command.Flags().Bool("capacity", false, "Also run capacity (bottleneck) analysis")
	withCPM      = Command.Flags().Bool("criticalpath", false, "Also run critical path analysis")

	validateCmd = &cobra.Command{
		Use:   "validate [-options]",
		Short: "Cross-checks exact beliefs against a Monte Carlo estimate",
	}

	vInput   = validateCmd.Flags().String("input", "", "Network file in JSON format")
	vSamples = validateCmd.Flags().Int("samples", 100000, "Number of Monte Carlo samples")
	vSeed    = validateCmd.Flags().Int64("seed", 1, "Sampling seed")
)

func init() {
	cli.Root.AddCommand(Command)
	cli.Root.AddCommand(validateCmd)
	Command.RunE = execute
	validateCmd.RunE = validate
}

// LoadNetwork resolves the input flags shared by the batch commands.
func LoadNetwork(jsonPath, edgePath, priorPath string) (*graph.Network[float64], error) {
	switch {
	case jsonPath != "":
		return loaders.LoadJSON(jsonPath)
	case edgePath != "" && priorPath != "":
		return loaders.LoadCSV(edgePath, priorPath)
	}
	return nil, fmt.Errorf("no input network: give --input or both --edges and --priors")
}

type report struct {
	Meta            basedata.Common                            `json:"meta"`
	Domain          string                                     `json:"domain"`
	Beliefs         any                                        `json:"beliefs"`
	RunID           string                                     `json:"run_id"`
	Diamonds        map[graph.NodeID]*diamond.GroupedStructure `json:"diamonds"`
	Classifications []ClassifiedInstance                       `json:"classifications"`
	StoreStats      diamond.StoreStats                         `json:"store_stats"`
	Capacity        map[graph.NodeID]float64                   `json:"capacity,omitempty"`
	CriticalPath    map[graph.NodeID]float64                   `json:"critical_path,omitempty"`
}

func execute(cmd *cobra.Command, args []string) error {
	net, err := LoadNetwork(*input, *inputEdges, *inputPrior)
	if err != nil {
		return err
	}

	session, err := NewSession(net)
	if err != nil {
		return err
	}

	out := report{
		Meta:            basedata.GetCommonData(),
		Domain:          *domain,
		Diamonds:        session.Structures,
		Classifications: session.Classifications(),
		StoreStats:      session.Store.Stats(),
	}

	var scalar map[graph.NodeID]float64

	start := time.Now()
	switch *domain {
	case "prob":
		res, err := Propagate(session, belief.ProbAlgebra{})
		if err != nil {
			return err
		}
		out.Beliefs, out.RunID = res.Beliefs, res.RunID.String()
		scalar = res.Beliefs
	case "interval":
		res, err := Propagate(session, belief.IntervalAlgebra{})
		if err != nil {
			return err
		}
		out.Beliefs, out.RunID = res.Beliefs, res.RunID.String()
	case "pbox":
		res, err := Propagate(session, belief.PBoxAlgebra{})
		if err != nil {
			return err
		}
		out.Beliefs, out.RunID = res.Beliefs, res.RunID.String()
	default:
		return fmt.Errorf("unknown domain %q (want prob, interval or pbox)", *domain)
	}
	ui.Info().Msgf("Belief propagation finished in %v", time.Since(start).Round(time.Millisecond))

	if *withCapacity {
		// Edge probabilities double as capacities, priors as supply.
		out.Capacity = flow.Capacity(session.Idx, session.Sched, session.Net.Priors, session.Net.EdgeProbs)
	}
	if *withCPM {
		out.CriticalPath = flow.CriticalPath(session.Idx, session.Sched, session.Net.Priors, session.Net.EdgeProbs)
	}

	switch *format {
	case "json":
		if err := util.WriteJSON(*output, out); err != nil {
			return err
		}
	case "csv":
		if scalar == nil {
			return fmt.Errorf("csv output requires --domain prob")
		}
		if err := writeBeliefCSV(*output, scalar); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", *format)
	}
	ui.Info().Msgf("Results written to %v", *output)
	return nil
}

func writeBeliefCSV(path string, beliefs map[graph.NodeID]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	nodes := make([]graph.NodeID, 0, len(beliefs))
	for n := range beliefs {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)

	w := csv.NewWriter(f)
	if err := w.Write([]string{"node", "belief"}); err != nil {
		return err
	}
	for _, n := range nodes {
		row := []string{
			strconv.FormatUint(uint64(n), 10),
			strconv.FormatFloat(beliefs[n], 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func validate(cmd *cobra.Command, args []string) error {
	net, err := LoadNetwork(*vInput, "", "")
	if err != nil {
		return err
	}

	session, err := NewSession(net)
	if err != nil {
		return err
	}

	exact, err := Propagate(session, belief.ProbAlgebra{})
	if err != nil {
		return err
	}

	estimate := montecarlo.Estimate(net, session.Idx, *vSamples, *vSeed)

	var worst float64
	var worstNode graph.NodeID
	for n, b := range exact.Beliefs {
		if delta := math.Abs(b - estimate[n]); delta > worst {
			worst, worstNode = delta, n
		}
	}

	ui.Info().Msgf("Worst deviation %v at node %v over %v samples", worst, worstNode, *vSamples)
	return nil
}
