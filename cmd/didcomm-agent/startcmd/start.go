/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/operatecrypto/didcomm-go/cmd/didcomm-agent/startcmd/agent"
	"github.com/operatecrypto/didcomm-go/pkg/common/log"
)

const (
	agentHostFlagName      = "api-host"
	agentHostEnvKey        = "DIDCOMM_API_HOST"
	agentHostFlagShorthand = "a"
	agentHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + agentHostEnvKey

	agentResolverURLFlagName      = "resolver-url"
	agentResolverURLEnvKey        = "DIDCOMM_RESOLVER_URL"
	agentResolverURLFlagShorthand = "r"
	agentResolverURLFlagUsage     = "Base URL of the HTTP binding DID resolver." +
		" Alternatively, this can be set with the following environment variable: " + agentResolverURLEnvKey

	agentMasterKeyFlagName  = "master-key"
	agentMasterKeyEnvKey    = "DIDCOMM_MASTER_KEY"
	agentMasterKeyFlagUsage = "Hex encoded AES master key protecting stored private keys (16, 24 or 32 bytes)." +
		" Keys are stored unsealed if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentMasterKeyEnvKey

	agentLogLevelFlagName  = "log-level"
	agentLogLevelEnvKey    = "DIDCOMM_LOG_LEVEL"
	agentLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentLogLevelEnvKey

	agentCORSFlagName  = "cors-origins"
	agentCORSEnvKey    = "DIDCOMM_CORS_ORIGINS"
	agentCORSFlagUsage = "Comma separated CORS origins allowed to call the API. Defaults to * if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentCORSEnvKey
)

var logger = log.New("didcomm-go/agent")

type server interface {
	ListenAndServe(host string, router http.Handler) error
}

// HTTPServer is the production server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler) error {
	return http.ListenAndServe(host, router)
}

// Cmd returns the Cobra start command.
func Cmd(srv server) (*cobra.Command, error) {
	startCmd := createStartCmd(srv)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCmd(srv server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start an agent",
		Long:  "Start a DIDComm messaging agent with its controller API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel, err := getUserSetVar(cmd, agentLogLevelFlagName, agentLogLevelEnvKey, true)
			if err != nil {
				return err
			}

			if err = setLogLevel(logLevel); err != nil {
				return err
			}

			host, err := getUserSetVar(cmd, agentHostFlagName, agentHostEnvKey, false)
			if err != nil {
				return err
			}

			resolverURL, err := getUserSetVar(cmd, agentResolverURLFlagName, agentResolverURLEnvKey, false)
			if err != nil {
				return err
			}

			masterKeyHex, err := getUserSetVar(cmd, agentMasterKeyFlagName, agentMasterKeyEnvKey, true)
			if err != nil {
				return err
			}

			masterKey, err := decodeMasterKey(masterKeyHex)
			if err != nil {
				return err
			}

			corsOrigins, err := getUserSetVars(cmd, agentCORSFlagName, agentCORSEnvKey, true)
			if err != nil {
				return err
			}

			router, err := agent.Router(&agent.Parameters{
				ResolverURL: resolverURL,
				MasterKey:   masterKey,
			})
			if err != nil {
				return fmt.Errorf("assemble agent: %w", err)
			}

			handler := cors.New(cors.Options{
				AllowedOrigins: allowedOrigins(corsOrigins),
				AllowedMethods: []string{
					http.MethodGet, http.MethodPost, http.MethodDelete,
				},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
			}).Handler(router)

			logger.Infof("starting agent on host %s", host)

			return srv.ListenAndServe(host, handler)
		},
	}
}

func createFlags(startCmd *cobra.Command) {
	startCmd.Flags().StringP(agentHostFlagName, agentHostFlagShorthand, "", agentHostFlagUsage)
	startCmd.Flags().StringP(agentResolverURLFlagName, agentResolverURLFlagShorthand, "", agentResolverURLFlagUsage)
	startCmd.Flags().StringP(agentMasterKeyFlagName, "", "", agentMasterKeyFlagUsage)
	startCmd.Flags().StringP(agentLogLevelFlagName, "", "", agentLogLevelFlagUsage)
	startCmd.Flags().StringSliceP(agentCORSFlagName, "", nil, agentCORSFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		if !isSet {
			return nil, nil
		}

		return []string{value}, nil
	}

	return nil, errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func decodeMasterKey(masterKeyHex string) ([]byte, error) {
	if masterKeyHex == "" {
		return nil, nil
	}

	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid hex: %w", err)
	}

	return masterKey, nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}

	return origins
}
