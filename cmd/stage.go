/*
Copyright © 2021 Joseph Lewis <joseph@josephlewis.net>

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
package cmd

import (
	"os"

	"github.com/josephlewis42/minishell/core/stage"
	"github.com/spf13/cobra"
)

// stageCmd is started by the executor for every command it runs. It applies
// the redirection in its own process then replaces itself with the program.
var stageCmd = &cobra.Command{
	Use:                stage.Verb + " [options] -- program [args...]",
	Short:              "Wire descriptors and exec a program.",
	Hidden:             true,
	DisableFlagParsing: true,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(stage.Main(append([]string{stage.Verb}, args...), os.Stderr))
	},
}

func init() {
	rootCmd.AddCommand(stageCmd)
}
