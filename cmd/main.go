/*
Copyright 2025 Tijori Authors.

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

	"github.com/bell24h/tijori"
	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/database"
	"github.com/bell24h/tijori/internal/notification"
)

// Tijori wraps the root Cobra command for the CLI.
type Tijori struct {
	cmd *cobra.Command
}

// tijoriInstance holds the engine and configuration shared across
// subcommands.
type tijoriInstance struct {
	tijori *tijori.Tijori
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *tijoriInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("tijori.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newTijori, err := setupTijori(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.tijori = newTijori
		app.cnf = cnf

		return nil
	}
}

func setupTijori(cfg *config.Configuration) (*tijori.Tijori, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	providers := tijori.NewHTTPProviders(cfg.Providers)
	newTijori, err := tijori.NewTijori(db, providers, providers, providers)
	if err != nil {
		return nil, fmt.Errorf("error creating tijori: %v", err)
	}
	return newTijori, nil
}

// NewCLI builds the command tree: server, workers and migrations.
func NewCLI() *Tijori {
	var configFile string
	b := &tijoriInstance{}

	var rootCmd = &cobra.Command{
		Use:   "tijori",
		Short: "B2B settlement engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./tijori.json", "Configuration file for tijori")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Tijori{cmd: rootCmd}
}

func (w Tijori) executeCLI() {
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
