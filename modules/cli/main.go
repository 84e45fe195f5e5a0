package cli

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	"github.com/felixge/fgprof"
	"github.com/felixge/fgtrace"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/beliefdag/beliefdag/modules/ui"
	"github.com/beliefdag/beliefdag/modules/version"
)

var (
	Root = &cobra.Command{
		Use:              "beliefdag",
		Short:            version.VersionStringShort(),
		SilenceErrors:    true,
		SilenceUsage:     true,
		TraverseChildren: true,
	}

	loglevel = Root.Flags().String("loglevel", "info", "Console log level")

	logfile      = Root.Flags().String("logfile", "", "File to log to")
	logfilelevel = Root.Flags().String("logfilelevel", "info", "Log file log level")
	logzerotime  = Root.Flags().Bool("logzerotime", false, "Logged timestamps start from zero when program launches")

	embeddedprofiler = Root.Flags().Bool("embeddedprofiler", false, "Start embedded Go profiler on localhost:6060")
	cpuprofile       = Root.Flags().Bool("cpuprofile", false, "Save CPU profile from start to end of processing in datapath")
	memprofile       = Root.Flags().Bool("memprofile", false, "Save memory profile at end of processing in datapath")
	dofgtrace        = Root.Flags().Bool("fgtrace", false, "Save fgtrace from start to end of processing in datapath")
	dofgprof         = Root.Flags().Bool("fgprof", false, "Save fgprof profile from start to end of processing in datapath")

	// also available for subcommands
	Datapath = Root.Flags().String("datapath", "data", "folder to store and read data")

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show beliefdag version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.Info().Msg(version.ProgramVersionShort())
			return nil
		},
	}

	stopcpuprofile = make(chan bool, 5)
	stopmemprofile = make(chan bool, 5)
	stopfgtrace    = make(chan bool, 5)
	stopfgprof     = make(chan bool, 5)
	profilewriters sync.WaitGroup
)

func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Apply the viper config value to the flag when the flag is not set
		// and viper has a value
		if !f.Changed && viper.IsSet(f.Name) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				sv.Replace(viper.GetStringSlice(f.Name))
			} else {
				f.Value.Set(viper.GetString(f.Name))
			}
		}
	})
	for _, subCommand := range cmd.Commands() {
		bindFlags(subCommand)
	}
}

func loadConfiguration(cmd *cobra.Command) {
	viper.SetEnvPrefix("BELIEFDAG_")
	viper.AutomaticEnv()

	configfilename := filepath.Join(*Datapath, "configuration.yaml")
	viper.SetConfigFile(configfilename)
	if err := viper.ReadInConfig(); err == nil {
		ui.Info().Msgf("Using configuration file: %v", viper.ConfigFileUsed())
	} else {
		ui.Debug().Msgf("No settings loaded from %v: %v", configfilename, err.Error())
	}

	bindFlags(cmd)
}

func init() {
	cobra.OnInitialize(func() {
		loadConfiguration(Root)
	})

	Root.AddCommand(versionCmd)
	Root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		ui.Zerotime = *logzerotime

		ll, err := ui.LogLevelString(*loglevel)
		if err != nil {
			ui.Error().Msgf("Invalid log level: %v - use one of: %v", *loglevel, strings.Join(ui.LogLevelStrings(), ", "))
		} else {
			ui.SetLoglevel(ll)
		}

		if *logfile != "" {
			timestamp := time.Now().Format(time.DateOnly)
			*logfile = strings.Replace(*logfile, "{timestamp}", timestamp, 1)

			ll, err = ui.LogLevelString(*logfilelevel)
			if err != nil {
				ui.Error().Msgf("Invalid log file log level: %v - use one of: %v", *logfilelevel, strings.Join(ui.LogLevelStrings(), ", "))
			} else {
				ui.SetLogFile(*logfile, ll)
			}
		} else {
			ui.SetLogFile("", ui.LevelInfo) // Tell logger to stop buffering early output
		}

		ui.Info().Msg(version.VersionString())

		if *embeddedprofiler {
			go func() {
				port := 6060
				for {
					err := http.ListenAndServe(fmt.Sprintf("localhost:%v", port), nil)
					if err != nil {
						ui.Error().Msgf("Profiling listener failed: %v, trying with new port", err)
						port++
					} else {
						break
					}
				}
			}()
		}

		if *dofgprof {
			tracefilename := filepath.Join(*Datapath, "beliefdag-fgprof-"+time.Now().Format("06010215040506")+".json")
			tracefile, err := os.Create(tracefilename)
			if err != nil {
				ui.Fatal().Msgf("Error creating fgprof file %v: %v", tracefilename, err)
			}
			tracestopper := fgprof.Start(tracefile, fgprof.FormatPprof)
			profilewriters.Add(1)

			go func() {
				<-stopfgprof
				err = tracestopper()
				if err != nil {
					ui.Error().Msgf("Problem stopping fgprof: %v", err)
				}
				profilewriters.Done()
			}()
		}

		if *dofgtrace {
			tracefile := filepath.Join(*Datapath, "beliefdag-fgtrace-"+time.Now().Format("06010215040506")+".json")
			trace := fgtrace.Config{Dst: fgtrace.File(tracefile)}.Trace()

			profilewriters.Add(1)

			go func() {
				<-stopfgtrace
				err := trace.Stop()
				if err != nil {
					ui.Error().Msgf("Problem stopping fgtrace: %v", err)
				}
				profilewriters.Done()
			}()
		}

		if *cpuprofile {
			pproffile := filepath.Join(*Datapath, "beliefdag-cpuprofile-"+time.Now().Format("06010215040506")+".pprof")
			f, err := os.Create(pproffile)
			if err != nil {
				return fmt.Errorf("Could not set up CPU profiling in file %v: %v", pproffile, err)
			}
			pprof.StartCPUProfile(f)

			profilewriters.Add(1)

			go func() {
				<-stopcpuprofile
				pprof.StopCPUProfile()
				profilewriters.Done()
			}()
		}

		if *memprofile {
			pproffile := filepath.Join(*Datapath, "beliefdag-memprofile-"+time.Now().Format("06010215040506")+".pprof")
			f, err := os.Create(pproffile)
			if err != nil {
				return fmt.Errorf("Could not set up memory profiling in file %v: %v", pproffile, err)
			}

			profilewriters.Add(1)

			go func() {
				<-stopmemprofile
				pprof.WriteHeapProfile(f)
				profilewriters.Done()
			}()
		}

		// Ensure the data folder is available
		if _, err := os.Stat(*Datapath); os.IsNotExist(err) {
			err = os.MkdirAll(*Datapath, 0711)
			if err != nil {
				return fmt.Errorf("Could not create data folder %v: %v", *Datapath, err)
			}
		}

		return nil
	}
	Root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		stopfgtrace <- true
		stopfgprof <- true
		stopcpuprofile <- true
		stopmemprofile <- true
		profilewriters.Wait()
		return nil
	}
}

func Run() error {
	err := Root.Execute()

	if err == nil {
		ui.Info().Msgf("Terminating successfully")
	}

	return err
}
