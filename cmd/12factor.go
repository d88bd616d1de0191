package cmd

import (
	"fmt"
	"os"
	"strings"

	c "github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helper"
	"github.com/relloyd/deskpipe/logger"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by deskpipe's actions.
func init() {
	if err := helper.LoadDotEnv(dotEnvFile); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		lambdaMode = strings.ToLower(mode) == "lambda"
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	dotEnvFile             = ".env"
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if envVarTwelveFactorMode is "lambda"
	// twelveFactorVarsSensitive are never logged.
	twelveFactorVarsSensitive = map[string]struct{}{
		helper.FlagNameToEnvVar("helpdesk-api-key"): {},
		helper.FlagNameToEnvVar("sink-dsn"):         {},
	}
)

type twelveFactorAction struct {
	runnerFunc func() error
}

// twelveFactorActions are keyed by the value of envVarCommand.
var twelveFactorActions = map[string]twelveFactorAction{
	"run":      {runnerFunc: runRun},
	"refresh":  {runnerFunc: runRefresh},
	"schedule": {runnerFunc: runSchedule},
}

func execute12FactorMode(acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "info")
	log := logger.NewLogger("deskpipe", logLevel, stackDumpOnPanic)
	log.Info("deskpipe is running in 12 Factor mode...")
	for _, kv := range os.Environ() { // for each variable meant for us...
		k := strings.SplitN(kv, "=", 2)[0]
		if !strings.HasPrefix(k, c.EnvVarPrefix+"_") {
			continue
		}
		if _, sensitive := twelveFactorVarsSensitive[k]; sensitive {
			log.Debug(k, "=", "<obfuscated>")
		} else {
			log.Debug(k, "=", os.Getenv(k))
		}
	}
	command := os.Getenv(envVarCommand)
	a, ok := acts[command]
	if !ok {
		err = fmt.Errorf("invalid command %q in %v", command, envVarCommand)
		log.Error(err.Error())
		return
	}
	err = a.runnerFunc()
	if err != nil {
		log.Error("Error: ", err)
	}
	return err
}
