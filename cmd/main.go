/*
Copyright 2025 ChainProof Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chainproof/chainproof"
	"github.com/chainproof/chainproof/config"
	"github.com/chainproof/chainproof/internal/notification"
	"github.com/chainproof/chainproof/ledger"
)

// Chainproof represents the CLI application, encapsulating the root Cobra command.
type Chainproof struct {
	cmd *cobra.Command
}

// chainproofInstance holds the runtime service and its configuration, shared
// by every subcommand.
type chainproofInstance struct {
	service *chainproof.Chainproof
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service before any
// subcommand executes.
func preRun(app *chainproofInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("chainproof.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupChainproof(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.service = service
		app.cnf = cnf

		return nil
	}
}

// setupChainproof resolves the configured ledger backend and builds the
// custody service on top of it.
func setupChainproof(cfg *config.Configuration) (*chainproof.Chainproof, error) {
	store, err := ledger.NewLedger(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting ledger backend: %v", err)
	}

	service, err := chainproof.NewChainproof(store)
	if err != nil {
		return nil, fmt.Errorf("error creating chainproof: %v", err)
	}
	return service, nil
}

// NewCLI assembles the root command and its subcommands.
func NewCLI() *Chainproof {
	var configFile string
	b := &chainproofInstance{}

	var rootCmd = &cobra.Command{
		Use:   "chainproof",
		Short: "Batch lineage and custody server",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./chainproof.json", "Configuration file for the custody server")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(configCommands())

	return &Chainproof{cmd: rootCmd}
}

func (w Chainproof) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
