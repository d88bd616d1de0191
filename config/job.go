package config

import (
	"fmt"
	"time"

	"github.com/relloyd/deskpipe/aws/s3"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helper"
	"github.com/relloyd/deskpipe/rdbms"
)

// HelpdeskConfig holds the source API settings.
type HelpdeskConfig struct {
	BaseUrl     string        `errorTxt:"helpdesk API URL" mandatory:"yes"`
	ApiKey      string        `errorTxt:"helpdesk API key" mandatory:"yes"`
	AgentEmail  string        `errorTxt:"helpdesk agent email" mandatory:"yes"`
	Timeout     time.Duration `errorTxt:"request timeout"`
	MaxRetries  int           `errorTxt:"max retries"`
	BackoffBase time.Duration `errorTxt:"backoff base"`
	PageSize    int           `errorTxt:"page size"`
}

// WindowConfig controls how the extraction time range is cut up.
type WindowConfig struct {
	Lookback      time.Duration `errorTxt:"lookback" mandatory:"yes"`
	Step          time.Duration `errorTxt:"window step"`
	MinWidth      time.Duration `errorTxt:"min window"`
	MaxSplitDepth int           `errorTxt:"max split depth"`
}

// SinkConfig names the destination table.
type SinkConfig struct {
	Dsn   string `errorTxt:"sink DSN" mandatory:"yes"`
	Table string `errorTxt:"target table" mandatory:"yes"`
}

// ArchiveConfig is optional. An empty Url disables archiving.
type ArchiveConfig struct {
	Url    string `errorTxt:"archive S3 URL"`
	Region string `errorTxt:"archive S3 region"`
}

// JobConfig is everything a run or refresh needs. The pipeline reads nothing else.
type JobConfig struct {
	Helpdesk       HelpdeskConfig
	Window         WindowConfig
	Sink           SinkConfig
	Archive        ArchiveConfig
	DedupPolicy    string `errorTxt:"dedup policy"`
	ChatMode       string `errorTxt:"chat mode"`
	Filter         string `errorTxt:"JSONLogic row filter"`
	ResolvedStatus string `errorTxt:"resolved status"`
}

// NewJobConfig returns a JobConfig with the default tuning values set.
func NewJobConfig() *JobConfig {
	return &JobConfig{
		Helpdesk: HelpdeskConfig{
			Timeout:     30 * time.Second,
			MaxRetries:  constants.DefaultMaxRetries,
			BackoffBase: constants.DefaultBackoffBase,
			PageSize:    constants.PageSizeMax,
		},
		Window: WindowConfig{
			Lookback:      24 * time.Hour,
			MinWidth:      constants.DefaultMinWindow,
			MaxSplitDepth: constants.DefaultMaxSplitDepth,
		},
		DedupPolicy:    constants.DedupPolicyIndependent,
		ChatMode:       constants.ChatModeEnrich,
		ResolvedStatus: constants.StatusResolvedDefault,
	}
}

// Validate checks mandatory fields and the values that must come from a fixed set.
func (j *JobConfig) Validate() error {
	if err := helper.ValidateStructIsPopulated(j); err != nil {
		return err
	}
	if _, err := j.TableID(); err != nil {
		return err
	}
	switch j.DedupPolicy {
	case "", constants.DedupPolicyIndependent, constants.DedupPolicyTicket, constants.DedupPolicyChat:
	default:
		return fmt.Errorf("unsupported dedup policy %q", j.DedupPolicy)
	}
	switch j.ChatMode {
	case "", constants.ChatModeEnrich, constants.ChatModeBulk:
	default:
		return fmt.Errorf("unsupported chat mode %q", j.ChatMode)
	}
	if j.Window.Lookback < 0 || j.Window.Step < 0 || j.Window.MinWidth < 0 {
		return fmt.Errorf("window durations must not be negative")
	}
	if j.Archive.Url != "" {
		if _, err := j.ArchiveBucket(); err != nil {
			return err
		}
	}
	return nil
}

func (j *JobConfig) TableID() (rdbms.TableID, error) {
	return rdbms.ParseTableID(j.Sink.Table)
}

func (j *JobConfig) ArchiveBucket() (s3.AwsS3Bucket, error) {
	return s3.ParseDSN(j.Archive.Url, j.Archive.Region)
}
