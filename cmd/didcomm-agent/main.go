/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package main starts the DIDComm messaging agent and its controller API.
package main

import (
	"github.com/spf13/cobra"

	"github.com/operatecrypto/didcomm-go/cmd/didcomm-agent/startcmd"
	"github.com/operatecrypto/didcomm-go/pkg/common/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use: "didcomm-agent",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("didcomm-go/agent")

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run didcomm-agent: %s", err)
	}
}
