/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockServer struct{}

func (s *mockServer) ListenAndServe(host string, router http.Handler) error {
	return nil
}

func TestStartCmdContents(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	require.Equal(t, "start", startCmd.Use)
	require.Equal(t, "Start an agent", startCmd.Short)
	require.NotNil(t, startCmd.Flag(agentHostFlagName))
	require.NotNil(t, startCmd.Flag(agentResolverURLFlagName))
	require.NotNil(t, startCmd.Flag(agentMasterKeyFlagName))
	require.NotNil(t, startCmd.Flag(agentLogLevelFlagName))
	require.NotNil(t, startCmd.Flag(agentCORSFlagName))
}

func TestStartCmdWithMissingHostArg(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{"--" + agentResolverURLFlagName, "http://resolver.example.com"})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), agentHostFlagName)
}

func TestStartCmdWithMissingResolverArg(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{"--" + agentHostFlagName, "localhost:8080"})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), agentResolverURLFlagName)
}

func TestStartCmdValidArgs(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{
		"--" + agentHostFlagName, "localhost:8080",
		"--" + agentResolverURLFlagName, "http://resolver.example.com",
		"--" + agentMasterKeyFlagName, "000102030405060708090a0b0c0d0e0f",
		"--" + agentLogLevelFlagName, "DEBUG",
		"--" + agentCORSFlagName, "https://app.example.com",
	})

	require.NoError(t, startCmd.Execute())
}

func TestStartCmdValidArgsEnvVariable(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	t.Setenv(agentHostEnvKey, "localhost:8080")
	t.Setenv(agentResolverURLEnvKey, "http://resolver.example.com")

	require.NoError(t, startCmd.Execute())
}

func TestStartCmdInvalidMasterKey(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{
		"--" + agentHostFlagName, "localhost:8080",
		"--" + agentResolverURLFlagName, "http://resolver.example.com",
		"--" + agentMasterKeyFlagName, "not-hex",
	})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "master key is not valid hex")
}

func TestStartCmdInvalidLogLevel(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{
		"--" + agentHostFlagName, "localhost:8080",
		"--" + agentResolverURLFlagName, "http://resolver.example.com",
		"--" + agentLogLevelFlagName, "INVALID",
	})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse log level")
}

func TestDecodeMasterKey(t *testing.T) {
	key, err := decodeMasterKey("")
	require.NoError(t, err)
	require.Nil(t, key)

	key, err = decodeMasterKey("00112233445566778899aabbccddeeff")
	require.NoError(t, err)
	require.Len(t, key, 16)
}

func TestAllowedOrigins(t *testing.T) {
	require.Equal(t, []string{"*"}, allowedOrigins(nil))
	require.Equal(t, []string{"https://a.example.com"}, allowedOrigins([]string{"https://a.example.com"}))
}
