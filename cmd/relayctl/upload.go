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
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relayproject/relay-go/relayclient"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files and print the asset identifiers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Destroy()

		files := make([]relayclient.File, 0, len(args))
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()
			files = append(files, relayclient.File{
				Name:      filepath.Base(path),
				MediaType: mime.TypeByExtension(filepath.Ext(path)),
				Reader:    f,
			})
		}

		result, err := client.Upload(cmd.Context(), files)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, result); err != nil {
			return err
		}
		if result.FailedUploads > 0 {
			return fmt.Errorf("%d of %d files failed to upload", result.FailedUploads, result.TotalFiles)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
