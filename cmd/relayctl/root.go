// Copyright 2026 The Relay Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relayproject/relay-go/relayclient"
)

var rootCmd = &cobra.Command{
	Use:           "relayctl",
	Short:         "Client for asynchronous agent task backends",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("backend-url", "", "agent backend base URL")
	flags.String("api-key", "", "static backend API key")
	flags.Duration("poll-timeout", relayclient.DefaultPollTimeout, "wall-clock ceiling for polling one task")

	_ = viper.BindPFlag("backend_url", flags.Lookup("backend-url"))
	_ = viper.BindPFlag("api_key", flags.Lookup("api-key"))
	_ = viper.BindPFlag("poll_timeout", flags.Lookup("poll-timeout"))
}

func initConfig() {
	viper.SetConfigName(".relayctl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
	viper.SetEnvPrefix("RELAY")
	viper.AutomaticEnv()

	// The config file is optional; flags and env cover everything.
	_ = viper.ReadInConfig()
}

func newClient() (*relayclient.Client, error) {
	backendURL := viper.GetString("backend_url")
	if backendURL == "" {
		return nil, fmt.Errorf("backend URL is required (--backend-url, RELAY_BACKEND_URL, or config file)")
	}

	opts := []relayclient.Option{
		relayclient.WithConfig(relayclient.Config{PollTimeout: viper.GetDuration("poll_timeout")}),
	}
	if key := viper.GetString("api_key"); key != "" {
		opts = append(opts, relayclient.WithAPIKey(key))
	}
	return relayclient.New(backendURL, opts...), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := jsonIndent(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func jsonIndent(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding output: %w", err)
	}
	return string(out), nil
}
