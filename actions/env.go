package actions

import (
	"context"
	"time"

	"github.com/relloyd/deskpipe/aws/s3"
	"github.com/relloyd/deskpipe/config"
	"github.com/relloyd/deskpipe/helper"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/rdbms"
)

// Env holds the outside world an action talks to. Nil fields fall back to the real implementations.
type Env struct {
	Log         logger.Logger
	Now         func() time.Time
	OpenSink    func(ctx context.Context, log logger.Logger, dsn string) (rdbms.Sink, error)
	OpenArchive func(b s3.AwsS3Bucket) (s3.BufferPutter, error)
}

func (e *Env) orDefault() *Env {
	retval := &Env{}
	if e != nil {
		*retval = *e
	}
	if retval.Now == nil {
		retval.Now = time.Now
	}
	if retval.OpenSink == nil {
		retval.OpenSink = rdbms.OpenSink
	}
	if retval.OpenArchive == nil {
		retval.OpenArchive = func(b s3.AwsS3Bucket) (s3.BufferPutter, error) {
			return s3.NewBasicClient(b)
		}
	}
	return retval
}

func (e *Env) logger(level string, stackDumpOnPanic bool) logger.Logger {
	if e.Log != nil {
		return e.Log
	}
	if level == "" {
		level = "info"
	}
	return logger.NewLogger("deskpipe", level, stackDumpOnPanic)
}

// validate checks the mandatory fields of cfg and then the job itself.
func validate(cfg interface{}, job *config.JobConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	return job.Validate()
}
