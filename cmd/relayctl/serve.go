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
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/relayproject/relay-go/log"
	"github.com/relayproject/relay-go/relaysrv"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the key-hiding proxy in front of the agent backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := relaysrv.DefaultConfig()
		cfg.Addr = viper.GetString("addr")
		cfg.BackendURL = viper.GetString("backend_url")
		cfg.APIKey = viper.GetString("api_key")
		cfg.AllowedOrigins = viper.GetStringSlice("allowed_origins")
		cfg.PollTimeout = viper.GetDuration("poll_timeout")

		server, err := relaysrv.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info(ctx, "proxy listening", "addr", cfg.Addr, "backend", cfg.BackendURL)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(server.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().StringSlice("allowed-origin", nil, "origin allowed by CORS, repeatable; empty allows all")
	_ = viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("allowed_origins", serveCmd.Flags().Lookup("allowed-origin"))
	rootCmd.AddCommand(serveCmd)
}
