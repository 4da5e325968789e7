package vnavmap

import (
	"context"
	"fmt"
	"os"

	"go.viam.com/rdk/cli"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/robot"
	"go.viam.com/rdk/robot/client"
	"go.viam.com/rdk/utils"
	"go.viam.com/utils/rpc"
)

// ConnectToMachineFromEnv connects with the machine address and api key a
// viam module process already has in its environment.
func ConnectToMachineFromEnv(ctx context.Context, logger logging.Logger) (robot.Robot, error) {
	host := os.Getenv(utils.MachineFQDNEnvVar)
	keyID := os.Getenv(utils.APIKeyIDEnvVar)
	key := os.Getenv(utils.APIKeyEnvVar)
	if host == "" || keyID == "" || key == "" {
		return nil, fmt.Errorf("need %s, %s and %s set",
			utils.MachineFQDNEnvVar, utils.APIKeyIDEnvVar, utils.APIKeyEnvVar)
	}
	return ConnectToMachine(ctx, logger, host, keyID, key)
}

func ConnectToMachine(ctx context.Context, logger logging.Logger, host, apiKeyID, apiKey string) (robot.Robot, error) {
	creds := rpc.WithEntityCredentials(apiKeyID, rpc.Credentials{
		Type:    rpc.CredentialsTypeAPIKey,
		Payload: apiKey,
	})
	return client.New(ctx, host, logger, client.WithDialOptions(creds))
}

// ConnectToHostFromCLIToken connects with just a hostname, reusing the
// token "viam login" cached.
func ConnectToHostFromCLIToken(ctx context.Context, host string, logger logging.Logger) (robot.Robot, error) {
	if host == "" {
		return nil, fmt.Errorf("need a host")
	}

	c, err := cli.ConfigFromCache(nil)
	if err != nil {
		return nil, err
	}

	dopts, err := c.DialOptions()
	if err != nil {
		return nil, err
	}

	return client.New(ctx, host, logger, client.WithDialOptions(dopts...))
}
