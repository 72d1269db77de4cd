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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relayproject/relay-go/log"
	"github.com/relayproject/relay-go/relay"
	"github.com/relayproject/relay-go/report"
)

var sendFlags struct {
	agentID   string
	userID    string
	sessionID string
	assets    []string
	classify  bool
}

var sendCmd = &cobra.Command{
	Use:   "send [flags] <message>",
	Short: "Submit a task and wait for the normalized result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Destroy()

		ctx := cmd.Context()
		sub, err := client.Submit(ctx, relay.CallContext{
			Message:   args[0],
			AgentID:   sendFlags.agentID,
			UserID:    sendFlags.userID,
			SessionID: sendFlags.sessionID,
			Assets:    toAssetIDs(sendFlags.assets),
		})
		if err != nil {
			return err
		}
		log.Info(ctx, "task submitted", "task_id", sub.TaskID, "session_id", sub.SessionID)

		result, waitErr := client.Wait(ctx, sub.TaskID)
		if err := printJSON(cmd, result.Response); err != nil {
			return err
		}
		if len(result.ModuleOutputs) > 0 {
			if err := printJSON(cmd, result.ModuleOutputs); err != nil {
				return err
			}
		}

		if sendFlags.classify {
			if rec := report.Classify(report.FromResult(result, waitErr, client.BaseURL())); rec != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "classified failure: %s\n", rec.Kind)
				if err := printJSON(cmd, rec); err != nil {
					return err
				}
			}
		}
		return waitErr
	},
}

func toAssetIDs(ids []string) []relay.AssetID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]relay.AssetID, len(ids))
	for i, id := range ids {
		out[i] = relay.AssetID(id)
	}
	return out
}

func init() {
	sendCmd.Flags().StringVar(&sendFlags.agentID, "agent", "", "agent configuration identifier (required)")
	sendCmd.Flags().StringVar(&sendFlags.userID, "user", "", "stable user identifier; generated when omitted")
	sendCmd.Flags().StringVar(&sendFlags.sessionID, "session", "", "conversation session identifier; generated when omitted")
	sendCmd.Flags().StringSliceVar(&sendFlags.assets, "asset", nil, "previously uploaded asset id, repeatable")
	sendCmd.Flags().BoolVar(&sendFlags.classify, "classify", false, "print a classified error record on failure")
	_ = sendCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(sendCmd)
}
