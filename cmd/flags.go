package cmd

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/relloyd/deskpipe/config"
	"github.com/relloyd/deskpipe/helper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug\""},
	"dry-run": cliFlag{name: "dry-run", shortHand: "d",
		desc: "Print the SQL query without executing it"},
	"print-header": cliFlag{name: "print-header", shortHand: "x",
		desc: "Print a header for SQL query results"},
	"helpdesk-url": cliFlag{name: "helpdesk-url", shortHand: "u",
		desc: "Base URL of the helpdesk API, e.g. https://<tenant>.api002.octadesk.services"},
	"helpdesk-api-key": cliFlag{name: "helpdesk-api-key", shortHand: "k",
		desc: "Helpdesk API key sent in the x-api-key header"},
	"helpdesk-agent-email": cliFlag{name: "helpdesk-agent-email", shortHand: "e",
		desc: "Helpdesk agent email sent in the octa-agent-email header"},
	"timeout": cliFlag{name: "timeout", shortHand: "T",
		desc: "Timeout for each helpdesk request"},
	"max-retries": cliFlag{name: "max-retries", shortHand: "R",
		desc: "Attempts per page when the helpdesk answers 409 or 500"},
	"backoff": cliFlag{name: "backoff", shortHand: "B",
		desc: "Wait before the second attempt; it doubles on each further attempt"},
	"page-size": cliFlag{name: "page-size", shortHand: "p",
		desc: "Records per page (at most 100)"},
	"lookback": cliFlag{name: "lookback", shortHand: "L",
		desc: "How far back from now to extract tickets and chats"},
	"window-step": cliFlag{name: "window-step", shortHand: "W",
		desc: "Cut the lookback into windows of this width (0 for a single window)"},
	"min-window": cliFlag{name: "min-window", shortHand: "M",
		desc: "Windows that fail with a 5xx are halved until they are this narrow"},
	"max-split-depth": cliFlag{name: "max-split-depth", shortHand: "D",
		desc: "Maximum number of times a failing window is halved"},
	"sink-dsn": cliFlag{name: "sink-dsn", shortHand: "s",
		desc: "Target DSN: snowflake://..., postgres://... or stdout: for a dry run"},
	"table": cliFlag{name: "table", shortHand: "t",
		desc: "Target table as <project>.<dataset>.<table>"},
	"dedup-policy": cliFlag{name: "dedup-policy", shortHand: "P",
		desc: "Keys checked against the target: \"independent | ticket | chat\""},
	"chat-mode": cliFlag{name: "chat-mode", shortHand: "c",
		desc: "\"enrich\" to rebuild each chat from its detail and events, or \"bulk\" to keep the listing\n" +
			"and resolve only the ticket number"},
	"filter": cliFlag{name: "filter", shortHand: "f",
		desc: "JSON Logic rule; only merged rows for which it is true are loaded"},
	"archive-s3-url": cliFlag{name: "archive-s3-url", shortHand: "a",
		desc: "Optional s3://<bucket>[/<prefix>] to which new rows are archived as JSON lines"},
	"archive-s3-region": cliFlag{name: "archive-s3-region", shortHand: "r",
		desc: "AWS region of the archive bucket"},
	"resolved-status": cliFlag{name: "resolved-status", shortHand: "S",
		desc: "Tickets in this status are not refreshed"},
	"schedule": cliFlag{name: "schedule", shortHand: "C",
		desc: "Cron expression evaluated in UTC-3, e.g. \"0 */2 * * *\""},
}

// addFlag add a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// When running in twelveFactorMode, the targetVar is populated using the value of environment variable for the supplied
// name, or if not set then the supplied default value is used.
// When NOT running in twelveFactorMode, the default value is fetched from config if it exists else the supplied
// defaultValue is applied.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue, config.Main.Get) // get the cliFlag details, with defaults taken from config or the supplied defaultValue
	desc := sw.desc + desc2                                 // create the full flag description for use below
	if required {
		desc = "* " + desc
	}
	// Apply the flag.
	switch p := targetVar.(type) {
	case *string:
		if twelveFactorMode {
			*p = sw.val
		} else {
			c.Flags().StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
			// Signal that the flag was set so defaults take effect.
			if sw.val != "" { // if there is a value via config or default...
				mustSetFlag(c.Flags(), sw.name, sw.val)
			}
		}
	case *bool:
		defaultBool, _ := strconv.ParseBool(strings.TrimSpace(sw.val))
		if twelveFactorMode {
			*p = defaultBool
		} else {
			c.Flags().BoolVarP(p, sw.name, sw.shortHand, defaultBool, desc)
			mustSetFlag(c.Flags(), sw.name, strconv.FormatBool(defaultBool))
		}
	case *int:
		defaultInt, err := strconv.Atoi(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
			os.Exit(1)
		}
		if twelveFactorMode {
			*p = defaultInt
		} else {
			c.Flags().IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
			if sw.val != "" { // if there is a value via config or default...
				mustSetFlag(c.Flags(), sw.name, sw.val)
			}
		}
	case *time.Duration:
		defaultDuration, err := time.ParseDuration(sw.val)
		if err != nil {
			fmt.Printf("the value for flag %q must be a duration such as 30s or 2h: %v\n", sw.name, err)
			os.Exit(1)
		}
		if twelveFactorMode {
			*p = defaultDuration
		} else {
			c.Flags().DurationVarP(p, sw.name, sw.shortHand, defaultDuration, desc)
			mustSetFlag(c.Flags(), sw.name, sw.val)
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	// Optionally mark the flag as mandatory.
	if required && !twelveFactorMode { // if the flag is required...
		_ = c.MarkFlagRequired(sw.name)
	}
}

// getCliFlag fetches the value of name from the environment, when running in twelveFactorMode,
// else read the Main config file to find it.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string, fnGetConfig func(key string, out interface{}) error) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	if twelveFactorMode { // if we should read env vars...
		if err := helper.ReadValueFromEnv(helper.FlagNameToEnvVar(name), &s.val); err != nil { // if there's no value for the env var read into the switch val...
			// Apply the default.
			s.val = defaultValue
		}
	} else { // else check the config file or apply default...
		err := fnGetConfig(s.name, &s.val)
		if errors.As(err, &config.KeyNotFoundError{}) || s.val == "" { // if there was no key found...
			// Apply the default.
			s.val = defaultValue
		}
	}
	return s
}

func mustSetFlag(f *pflag.FlagSet, name string, val string) {
	if err := f.Set(name, val); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// addJobFlags registers the flags that populate job. Only the helpdesk and sink groups are added when
// extract is false.
func addJobFlags(c *cobra.Command, job *config.JobConfig, extract bool) {
	c.Flags().SortFlags = false
	switches.addFlag(c, &job.Helpdesk.BaseUrl, "helpdesk-url", "", true, "")
	switches.addFlag(c, &job.Helpdesk.ApiKey, "helpdesk-api-key", "", true, "")
	switches.addFlag(c, &job.Helpdesk.AgentEmail, "helpdesk-agent-email", "", true, "")
	switches.addFlag(c, &job.Sink.Dsn, "sink-dsn", "", true, "")
	switches.addFlag(c, &job.Sink.Table, "table", "", true, "")
	switches.addFlag(c, &job.Helpdesk.Timeout, "timeout", job.Helpdesk.Timeout.String(), false, "")
	if !extract {
		switches.addFlag(c, &job.ResolvedStatus, "resolved-status", job.ResolvedStatus, false, "")
		return
	}
	switches.addFlag(c, &job.Window.Lookback, "lookback", job.Window.Lookback.String(), false, "")
	switches.addFlag(c, &job.Window.Step, "window-step", job.Window.Step.String(), false, "")
	switches.addFlag(c, &job.Window.MinWidth, "min-window", job.Window.MinWidth.String(), false, "")
	switches.addFlag(c, &job.Window.MaxSplitDepth, "max-split-depth", strconv.Itoa(job.Window.MaxSplitDepth), false, "")
	switches.addFlag(c, &job.Helpdesk.PageSize, "page-size", strconv.Itoa(job.Helpdesk.PageSize), false, "")
	switches.addFlag(c, &job.Helpdesk.MaxRetries, "max-retries", strconv.Itoa(job.Helpdesk.MaxRetries), false, "")
	switches.addFlag(c, &job.Helpdesk.BackoffBase, "backoff", job.Helpdesk.BackoffBase.String(), false, "")
	switches.addFlag(c, &job.ChatMode, "chat-mode", job.ChatMode, false, "")
	switches.addFlag(c, &job.DedupPolicy, "dedup-policy", job.DedupPolicy, false, "")
	switches.addFlag(c, &job.Filter, "filter", "", false, "")
	switches.addFlag(c, &job.Archive.Url, "archive-s3-url", "", false, "")
	switches.addFlag(c, &job.Archive.Region, "archive-s3-region", "", false, "")
}

// getQueryFromArgsFunc concatenates all args into a string.
// Returns an error if there are no args.
func getQueryFromArgsFunc(query *string, customErrMsg string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 { // if we are missing arguments...
			if customErrMsg != "" {
				return errors.New(customErrMsg)
			}
			return errors.New("please supply a SQL query")
		}
		*query = strings.Join(args, " ")
		return nil
	}
}
