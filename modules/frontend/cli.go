package frontend

import (
	"runtime/debug"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/beliefdag/beliefdag/modules/analyze"
	"github.com/beliefdag/beliefdag/modules/cli"
	"github.com/beliefdag/beliefdag/modules/loaders"
	"github.com/beliefdag/beliefdag/modules/settings"
	"github.com/beliefdag/beliefdag/modules/ui"
)

var (
	Command = &cobra.Command{
		Use:   "serve [-options]",
		Short: "Launches the diagnostic webservice",
	}

	bind  = Command.Flags().String("bind", "127.0.0.1:8080", "Address and port of webservice to bind to")
	input = Command.Flags().String("input", "", "Network file (JSON) to preload before serving")
)

func init() {
	cli.Root.AddCommand(Command)
	Command.RunE = Execute
}

func Execute(cmd *cobra.Command, args []string) error {
	// Memory, GC and CPU settings
	memlimit.SetGoMemLimit(0.8)
	debug.SetGCPercent(35)

	maxprocs.Set(maxprocs.Logger(ui.Debug().Msgf))

	settings.SetPath(*cli.Datapath)

	ws := NewWebservice()

	// Preload the given network, falling back to the one loaded last time.
	path := *input
	if path == "" {
		path = settings.GetString("lastnetwork")
	}
	if path != "" {
		net, err := loaders.LoadJSON(path)
		if err != nil {
			if *input != "" {
				return err
			}
			ui.Warn().Msgf("Could not reload previous network %v: %v", path, err)
		} else {
			session, err := analyze.NewSession(net)
			if err != nil {
				return err
			}
			ws.SetSession(session)
		}
	}

	err := ws.Start(*bind)
	if err != nil {
		return err
	}

	// Wait for webservice to end
	<-ws.QuitChan()
	return nil
}
