package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCommand().Execute(); err != nil {
		log.Fatal().Err(err).Msg("artifact command failed")
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "artifact",
		Short: "Build and inspect classifier artifacts",
		Long: `The classifier is trained offline. Its export is a YAML document holding
the model version, the feature schema it was trained on and the model
parameters. pack turns that export into the binary artifact the API loads
from MODEL_PATH; inspect prints what an artifact contains.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newPackCommand(), newInspectCommand())
	return root
}
