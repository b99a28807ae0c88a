package cmd

import (
	"io"

	"github.com/pithecene-io/posters/config"
	"github.com/pithecene-io/posters/log"
)

// commandLogger builds the logger for a command that touches AWS or the
// ledger. It writes to w (stderr in practice) so stdout carries only
// rendered output. The sugared form is tagged with the command name and
// reports progress; the structured form goes to the pipeline.
func commandLogger(cfg *config.Config, command string, w io.Writer) (*log.Logger, *log.SugaredLogger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := log.NewLoggerWithWriter(level, w)
	return logger, logger.Sugar().With("command", command), nil
}
